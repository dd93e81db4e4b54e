package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/models"
)

// The insert and the last_update bump run as one statement: the UPDATE only
// touches a row when the INSERT produced one.
const postgresAppendQuery = `
WITH ins AS (
	INSERT INTO webhook_messages (id, conversation_id, sender_id, text, timestamp, is_from_me, attachments, platform)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
	RETURNING 1
)
UPDATE webhook_store_state SET last_update = $9
WHERE id = 1 AND EXISTS (SELECT 1 FROM ins)`

const postgresSelectColumns = `id, conversation_id, sender_id, text, timestamp, is_from_me, attachments, platform`

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Append(ctx context.Context, msg models.StoredMessage) (bool, error) {
	if err := validate(&msg); err != nil {
		return false, err
	}

	var attachments sql.NullString
	if len(msg.Attachments) > 0 {
		data, err := json.Marshal(msg.Attachments)
		if err != nil {
			return false, unavailable("append", fmt.Errorf("failed to encode attachments: %w", err))
		}
		attachments = sql.NullString{String: string(data), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, postgresAppendQuery,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Text,
		msg.Timestamp,
		msg.IsFromMe,
		attachments,
		msg.Platform,
		s.now().UnixMilli(),
	)
	if err != nil {
		return false, classifyPostgresError("append", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, classifyPostgresError("append", err)
	}

	return n > 0, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) (Snapshot, error) {
	msgs, err := s.query(ctx, "list_all",
		`SELECT `+postgresSelectColumns+` FROM webhook_messages ORDER BY seq`)
	if err != nil {
		return Snapshot{}, err
	}

	var lastUpdate int64
	err = s.db.QueryRowContext(ctx, `SELECT last_update FROM webhook_store_state WHERE id = 1`).Scan(&lastUpdate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, classifyPostgresError("list_all", err)
	}

	return Snapshot{Messages: msgs, LastUpdate: lastUpdate}, nil
}

func (s *PostgresStore) ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	return s.query(ctx, "list_by_conversation",
		`SELECT `+postgresSelectColumns+` FROM webhook_messages WHERE conversation_id = $1 ORDER BY timestamp, seq`,
		conversationID)
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...interface{}) ([]models.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPostgresError(op, err)
	}
	defer rows.Close()

	out := make([]models.StoredMessage, 0)
	for rows.Next() {
		var (
			msg         models.StoredMessage
			attachments []byte
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Text,
			&msg.Timestamp,
			&msg.IsFromMe,
			&attachments,
			&msg.Platform,
		); err != nil {
			return nil, classifyPostgresError(op, err)
		}
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
				return nil, unavailable(op, fmt.Errorf("failed to decode attachments of %s: %w", msg.ID, err))
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgresError(op, err)
	}

	return out, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyPostgresError("clear", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE webhook_messages`); err != nil {
		return classifyPostgresError("clear", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE webhook_store_state SET last_update = $1 WHERE id = 1`, s.now().UnixMilli()); err != nil {
		return classifyPostgresError("clear", err)
	}

	if err := tx.Commit(); err != nil {
		return classifyPostgresError("clear", err)
	}
	return nil
}

// classifyPostgresError maps integrity and data errors (SQLSTATE classes 22
// and 23) to validation errors; everything else means the store is
// unavailable.
func classifyPostgresError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return pkgerrors.ErrValidation.
				WithMessage(pqErr.Message).
				WithDetail("operation", op).
				WithDetail("sqlstate", string(pqErr.Code)).
				WithCause(err)
		}
	}
	return unavailable(op, err)
}
