package eventstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inboxhook/internal/constants"
	"inboxhook/pkg/models"
)

const (
	counterMessageSeq = "message_seq"
	counterLastUpdate = "last_update"
)

type mongoMessage struct {
	ID             string            `bson:"_id"`
	Seq            int64             `bson:"seq"`
	ConversationID string            `bson:"conversation_id"`
	SenderID       string            `bson:"sender_id"`
	Text           string            `bson:"text"`
	Timestamp      int64             `bson:"timestamp"`
	IsFromMe       bool              `bson:"is_from_me"`
	Attachments    []mongoAttachment `bson:"attachments,omitempty"`
	Platform       string            `bson:"platform,omitempty"`
	InsertedAt     int64             `bson:"inserted_at"`
}

type mongoAttachment struct {
	Type string `bson:"type"`
	URL  string `bson:"url"`
}

type mongoCounter struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

func toMongo(msg models.StoredMessage, seq, insertedAt int64) mongoMessage {
	doc := mongoMessage{
		ID:             msg.ID,
		Seq:            seq,
		InsertedAt:     insertedAt,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Text:           msg.Text,
		Timestamp:      msg.Timestamp,
		IsFromMe:       msg.IsFromMe,
		Platform:       msg.Platform,
	}
	for _, a := range msg.Attachments {
		doc.Attachments = append(doc.Attachments, mongoAttachment{Type: a.Type, URL: a.URL})
	}
	return doc
}

func (d mongoMessage) toModel() models.StoredMessage {
	msg := models.StoredMessage{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Text:           d.Text,
		Timestamp:      d.Timestamp,
		IsFromMe:       d.IsFromMe,
		Platform:       d.Platform,
	}
	for _, a := range d.Attachments {
		msg.Attachments = append(msg.Attachments, models.Attachment{Type: a.Type, URL: a.URL})
	}
	return msg
}

// MongoStore relies on the unique _id index: a duplicate-key error on insert
// is the no-op case. Each document carries its insert time, so lastUpdate is
// the later of the newest document and the last Clear.
type MongoStore struct {
	messages *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		messages: db.Collection(constants.MongoMessagesCollection),
		counters: db.Collection(constants.MongoCountersCollection),
		now:      time.Now,
	}
}

func (s *MongoStore) Append(ctx context.Context, msg models.StoredMessage) (bool, error) {
	if err := validate(&msg); err != nil {
		return false, err
	}

	// Skip the sequence bump for the common redelivery case.
	err := s.messages.FindOne(ctx, bson.M{"_id": msg.ID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, unavailable("append", err)
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return false, unavailable("append", err)
	}

	if _, err := s.messages.InsertOne(ctx, toMongo(msg, seq, s.now().UnixMilli())); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, unavailable("append", err)
	}
	return true, nil
}

func (s *MongoStore) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c mongoCounter
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": counterMessageSeq},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&c)
	return c.Value, err
}

func (s *MongoStore) touch(ctx context.Context) error {
	_, err := s.counters.UpdateOne(ctx,
		bson.M{"_id": counterLastUpdate},
		bson.M{"$set": bson.M{"value": s.now().UnixMilli()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) ListAll(ctx context.Context) (Snapshot, error) {
	msgs, err := s.find(ctx, "list_all", bson.M{}, bson.D{{Key: "seq", Value: 1}})
	if err != nil {
		return Snapshot{}, err
	}

	var c mongoCounter
	err = s.counters.FindOne(ctx, bson.M{"_id": counterLastUpdate}).Decode(&c)
	if err != nil && err != mongo.ErrNoDocuments {
		return Snapshot{}, unavailable("list_all", err)
	}

	var newest mongoMessage
	err = s.messages.FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "inserted_at", Value: -1}}).SetProjection(bson.M{"inserted_at": 1}),
	).Decode(&newest)
	if err != nil && err != mongo.ErrNoDocuments {
		return Snapshot{}, unavailable("list_all", err)
	}

	return Snapshot{Messages: msgs, LastUpdate: max(c.Value, newest.InsertedAt)}, nil
}

func (s *MongoStore) ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	return s.find(ctx, "list_by_conversation",
		bson.M{"conversation_id": conversationID},
		bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}},
	)
}

func (s *MongoStore) find(ctx context.Context, op string, filter interface{}, sort bson.D) ([]models.StoredMessage, error) {
	cursor, err := s.messages.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer cursor.Close(ctx)

	var docs []mongoMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable(op, err)
	}

	out := make([]models.StoredMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) Clear(ctx context.Context) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{}); err != nil {
		return unavailable("clear", err)
	}
	if err := s.touch(ctx); err != nil {
		return unavailable("clear", err)
	}
	return nil
}
