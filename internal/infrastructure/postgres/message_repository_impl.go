package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

const messageColumns = `id, text, COALESCE(receiver_id::text, ''), COALESCE(topic_id::text, ''), created_at`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row pgx.Row) (*entity.Message, error) {
	m := &entity.Message{}
	if err := row.Scan(&m.ID, &m.Text, &m.ReceiverID, &m.TopicID, &m.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func collectMessages(rows pgx.Rows) ([]entity.Message, error) {
	defer rows.Close()
	out := make([]entity.Message, 0)
	for rows.Next() {
		var m entity.Message
		if err := rows.Scan(&m.ID, &m.Text, &m.ReceiverID, &m.TopicID, &m.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// nullable maps an empty id onto SQL NULL.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func (r *MessageRepository) Create(ctx context.Context, m *entity.Message) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (text, receiver_id, topic_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.Text, nullable(m.ReceiverID), nullable(m.TopicID))

	return mapErr(row.Scan(&m.ID, &m.CreatedAt))
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	return scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

func (r *MessageRepository) ListByReceiver(ctx context.Context, receiverID string, offset, limit int) ([]entity.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE receiver_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`, receiverID, offset, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectMessages(rows)
}

func (r *MessageRepository) CountByReceiver(ctx context.Context, receiverID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM messages WHERE receiver_id = $1`, receiverID).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *MessageRepository) UpdateText(ctx context.Context, id, text string) (*entity.Message, error) {
	return scanMessage(r.db.QueryRow(ctx, `
		UPDATE messages SET text = $1
		WHERE id = $2
		RETURNING `+messageColumns, text, id))
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM topic_messages WHERE message_id = $1`, id); err != nil {
			return mapErr(err)
		}
		res, err := tx.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
		if err != nil {
			return mapErr(err)
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

var _ repository.MessageRepository = (*MessageRepository)(nil)
