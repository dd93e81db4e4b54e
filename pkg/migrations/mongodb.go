package migrations

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inboxhook/internal/constants"
)

// EnsureMongoIndexes creates the indexes the message collection is queried
// by. The unique _id index that enforces first-write-wins exists implicitly.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetName("idx_messages_conversation_timestamp_seq"),
		},
		{
			Keys:    bson.D{{Key: "seq", Value: 1}},
			Options: options.Index().SetName("idx_messages_seq"),
		},
		{
			Keys:    bson.D{{Key: "inserted_at", Value: -1}},
			Options: options.Index().SetName("idx_messages_inserted_at"),
		},
	}

	if _, err := db.Collection(constants.MongoMessagesCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		if !mongo.IsDuplicateKeyError(err) && !isIndexConflict(err) {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}

func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	// 85 IndexOptionsConflict, 86 IndexKeySpecsConflict
	return cmdErr.Code == 85 || cmdErr.Code == 86
}
