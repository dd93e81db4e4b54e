// Package ingestion turns normalized webhook events into stored messages and
// forwards newly stored ones to the event sink.
package ingestion

import (
	"context"
	"errors"
	"time"

	"inboxhook/internal/broker"
	"inboxhook/internal/constants"
	"inboxhook/internal/credentials"
	"inboxhook/internal/eventstore"
	"inboxhook/internal/logger"
	"inboxhook/internal/normalizer"
	"inboxhook/pkg/cel"
	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/logging"
	"inboxhook/pkg/metrics"
	"inboxhook/pkg/models"
)

const (
	OutcomeStored    = "stored"
	OutcomeDuplicate = "duplicate"
	OutcomeFiltered  = "filtered"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

type Service struct {
	store     eventstore.Store
	creds     credentials.Store
	filter    *cel.Filter
	sink      broker.Producer
	sinkTopic string
	logger    logger.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithSkipFilter drops message events the filter matches before they reach
// the store.
func WithSkipFilter(f *cel.Filter) Option {
	return func(s *Service) { s.filter = f }
}

// WithSink publishes every newly inserted message to topic.
func WithSink(p broker.Producer, topic string) Option {
	return func(s *Service) {
		s.sink = p
		s.sinkTopic = topic
	}
}

func NewService(store eventstore.Store, creds credentials.Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		creds:  creds,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report summarizes one Ingest call. Messages lists every message of the
// batch as the store holds it after the call, whether this call inserted it or
// not. For a redelivered ID that is the first write.
type Report struct {
	Messages   []models.StoredMessage
	Stored     int
	Duplicates int
	Filtered   int
	Ignored    int
	Failed     int
}

// Ingest stores the message-like events of one webhook delivery. A store
// failure on one message is logged and the rest of the batch continues; only
// errors outside the store's taxonomy abort the call.
func (s *Service) Ingest(ctx context.Context, platform string, events []normalizer.WebhookEvent) (Report, error) {
	report := Report{Messages: make([]models.StoredMessage, 0, len(events))}
	accountID := s.accountID(ctx, platform)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		msg, ok := BuildMessage(platform, ev, accountID)
		if !ok {
			report.Ignored++
			metrics.IncWebhookEvent(platform, string(ev.Type), OutcomeIgnored)
			s.logger.DebugwCtx(ctx, "Event not stored",
				"platform", platform,
				"type", ev.Type,
				"user_id", ev.UserID,
			)
			continue
		}

		if msg.Timestamp == 0 {
			msg.Timestamp = s.now().UnixMilli()
		}

		msgCtx := logging.WithMessageID(ctx, msg.ID)

		if s.skip(msgCtx, ev) {
			report.Filtered++
			metrics.IncWebhookEvent(platform, string(ev.Type), OutcomeFiltered)
			continue
		}

		inserted, err := s.Record(msgCtx, constants.EnvelopeSourceWebhook, msg)
		switch {
		case err == nil && inserted:
			report.Stored++
			report.Messages = append(report.Messages, msg)
			metrics.IncWebhookEvent(platform, string(ev.Type), OutcomeStored)
		case err == nil:
			report.Duplicates++
			metrics.IncWebhookEvent(platform, string(ev.Type), OutcomeDuplicate)
			if stored, found := s.storedCopy(msgCtx, msg); found {
				report.Messages = append(report.Messages, stored)
			}
		case pkgerrors.IsStoreUnavailable(err) || pkgerrors.IsValidation(err):
			report.Failed++
			metrics.IncWebhookEvent(platform, string(ev.Type), OutcomeFailed)
			s.logger.ErrorwCtx(msgCtx, "Failed to store message",
				"platform", platform,
				"conversation_id", msg.ConversationID,
				"error", err,
			)
		default:
			return report, err
		}
	}

	return report, nil
}

// Record appends msg and, when it was new, publishes it to the sink. Sink
// failures are logged; the store is the source of truth.
func (s *Service) Record(ctx context.Context, source string, msg models.StoredMessage) (bool, error) {
	inserted, err := s.store.Append(ctx, msg)
	if err != nil {
		return false, err
	}

	if inserted && s.sink != nil {
		s.publish(ctx, source, msg)
	}
	return inserted, nil
}

// storedCopy returns the record the store kept for msg.ID. A redelivery may
// carry different content; the first write is what the store holds.
func (s *Service) storedCopy(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, bool) {
	msgs, err := s.store.ListByConversation(ctx, msg.ConversationID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Could not read back duplicate message", "error", err)
		return models.StoredMessage{}, false
	}
	for _, m := range msgs {
		if m.ID == msg.ID {
			return m, true
		}
	}
	s.logger.WarnwCtx(ctx, "Duplicate message is stored under another conversation",
		"conversation_id", msg.ConversationID,
	)
	return models.StoredMessage{}, false
}

func (s *Service) publish(ctx context.Context, source string, msg models.StoredMessage) {
	envelope, err := models.NewEnvelope(source, msg).
		WithCorrelation(logging.GetTraceID(ctx), logging.GetRequestID(ctx)).
		Inserted(true).
		Build()
	if err != nil {
		s.logger.WarnwCtx(ctx, "Stored message not publishable", "message_id", msg.ID, "error", err)
		return
	}

	if err := s.sink.Publish(ctx, s.sinkTopic, envelope); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish stored message",
			"topic", s.sinkTopic,
			"error", err,
		)
	}
}

func (s *Service) skip(ctx context.Context, ev normalizer.WebhookEvent) bool {
	if s.filter == nil {
		return false
	}

	matched, err := s.filter.Matches(ctx, ev.Fields())
	if err != nil {
		s.logger.WarnwCtx(ctx, "Skip expression failed, storing event",
			"expression", s.filter.Expression(),
			"error", err,
		)
		return false
	}
	return matched
}

// accountID looks up the connected account, used by platforms that detect
// their own messages by sender id.
func (s *Service) accountID(ctx context.Context, platform string) string {
	if s.creds == nil {
		return ""
	}

	creds, ok, err := s.creds.Get(ctx, platform)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.WarnwCtx(ctx, "Credentials lookup failed",
				"platform", platform,
				"error", err,
			)
		}
		return ""
	}
	if !ok {
		return ""
	}
	return creds.AccountID
}
