package broker

import (
	"errors"

	"inboxhook/internal/config"
	"inboxhook/internal/logger"
)

var ErrDisabled = errors.New("broker is disabled")

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	return NewKafkaProducer(cfg.Kafka, log), nil
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	return NewKafkaConsumer(cfg.Kafka, log), nil
}
