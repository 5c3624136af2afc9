package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

const topicColumns = `t.id, t.owner_id, t.title,
		(SELECT count(*) FROM topic_messages tm WHERE tm.topic_id = t.id),
		t.created_at, t.updated_at`

type TopicRepository struct {
	db DBTX
}

func NewTopicRepository(db DBTX) *TopicRepository {
	return &TopicRepository{db: db}
}

func scanTopic(row pgx.Row) (*entity.Topic, error) {
	t := &entity.Topic{}
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.MessageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *TopicRepository) Create(ctx context.Context, t *entity.Topic) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO topics (owner_id, title)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, t.OwnerID, t.Title)

	return mapErr(row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt))
}

func (r *TopicRepository) GetByID(ctx context.Context, id string) (*entity.Topic, error) {
	return scanTopic(r.db.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics t WHERE t.id = $1`, id))
}

func (r *TopicRepository) GetByOwnerAndTitle(ctx context.Context, ownerID, title string) (*entity.Topic, error) {
	return scanTopic(r.db.QueryRow(ctx, `
		SELECT `+topicColumns+`
		FROM topics t
		WHERE t.owner_id = $1 AND t.title = $2
	`, ownerID, title))
}

func (r *TopicRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Topic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+topicColumns+`
		FROM topics t
		WHERE t.owner_id = $1
		ORDER BY t.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]entity.Topic, 0)
	for rows.Next() {
		var t entity.Topic
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.MessageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *TopicRepository) Rename(ctx context.Context, id, title string) (*entity.Topic, error) {
	res, err := r.db.Exec(ctx, `UPDATE topics SET title = $1, updated_at = now() WHERE id = $2`, title, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM topic_messages WHERE topic_id = $1`, id); err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE topic_id = $1`, id); err != nil {
			return mapErr(err)
		}
		res, err := tx.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
		if err != nil {
			return mapErr(err)
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *TopicRepository) AppendMessage(ctx context.Context, topicID, messageID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO topic_messages (topic_id, message_id)
		VALUES ($1, $2)
		ON CONFLICT (topic_id, message_id) DO NOTHING
	`, topicID, messageID)
	return mapErr(err)
}

func (r *TopicRepository) HasMessage(ctx context.Context, topicID, messageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM topic_messages WHERE topic_id = $1 AND message_id = $2)
	`, topicID, messageID).Scan(&exists)
	if err != nil {
		return false, mapErr(err)
	}
	return exists, nil
}

func (r *TopicRepository) ListMessages(ctx context.Context, topicID string, offset, limit int) ([]entity.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.text, COALESCE(m.receiver_id::text, ''), COALESCE(m.topic_id::text, ''), m.created_at
		FROM topic_messages tm
		JOIN messages m ON m.id = tm.message_id
		WHERE tm.topic_id = $1
		ORDER BY tm.position
		OFFSET $2 LIMIT $3
	`, topicID, offset, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectMessages(rows)
}

func (r *TopicRepository) CountMessages(ctx context.Context, topicID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM topic_messages WHERE topic_id = $1`, topicID).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

var _ repository.TopicRepository = (*TopicRepository)(nil)
