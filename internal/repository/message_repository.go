package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// MessageRepository stores intake messages.
type MessageRepository interface {
	Save(ctx context.Context, msg *domain.IntakeMessage) error
	GetByID(ctx context.Context, id string) (*domain.IntakeMessage, error)
	List(ctx context.Context, limit int) ([]*domain.IntakeMessage, error)
	Count(ctx context.Context) (int, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates the Postgres repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageColumns = `id, channel, content, masked_content, sender, masked_sender, classification,
               classification_confidence, classification_method, priority, status, ticket_id,
               apartment_unit, created_at, updated_at`

func (r *messageRepository) Save(ctx context.Context, msg *domain.IntakeMessage) error {
	const query = `
        INSERT INTO intake_messages (` + messageColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (id) DO UPDATE SET
            masked_content=EXCLUDED.masked_content, masked_sender=EXCLUDED.masked_sender,
            classification=EXCLUDED.classification, classification_confidence=EXCLUDED.classification_confidence,
            classification_method=EXCLUDED.classification_method, status=EXCLUDED.status,
            ticket_id=EXCLUDED.ticket_id, apartment_unit=EXCLUDED.apartment_unit, updated_at=EXCLUDED.updated_at`

	unit, err := encodeUnit(msg.ApartmentUnit)
	if err != nil {
		return err
	}
	var classification, method *string
	if msg.Classification != nil {
		v := string(*msg.Classification)
		classification = &v
	}
	if msg.ClassificationMethod != "" {
		v := string(msg.ClassificationMethod)
		method = &v
	}

	_, err = r.pool.Exec(ctx, query,
		msg.ID,
		msg.Channel,
		msg.Content,
		msg.MaskedContent,
		msg.Sender,
		msg.MaskedSender,
		classification,
		msg.ClassificationConfidence,
		method,
		msg.Priority,
		msg.Status,
		msg.TicketID,
		unit,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.IntakeMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM intake_messages WHERE id=$1`
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return msg, nil
}

func (r *messageRepository) List(ctx context.Context, limit int) ([]*domain.IntakeMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM intake_messages ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.IntakeMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *messageRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM intake_messages`).Scan(&n)
	return n, err
}

func scanMessage(row pgx.Row) (*domain.IntakeMessage, error) {
	var (
		msg            domain.IntakeMessage
		classification *string
		method         *string
		unit           []byte
	)
	if err := row.Scan(
		&msg.ID,
		&msg.Channel,
		&msg.Content,
		&msg.MaskedContent,
		&msg.Sender,
		&msg.MaskedSender,
		&classification,
		&msg.ClassificationConfidence,
		&method,
		&msg.Priority,
		&msg.Status,
		&msg.TicketID,
		&unit,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if classification != nil {
		c := domain.Category(*classification)
		msg.Classification = &c
	}
	if method != nil {
		msg.ClassificationMethod = domain.ClassificationMethod(*method)
	}
	if len(unit) > 0 {
		var info domain.ApartmentUnitInfo
		if err := json.Unmarshal(unit, &info); err != nil {
			return nil, fmt.Errorf("decode apartment unit: %w", err)
		}
		msg.ApartmentUnit = &info
	}
	return &msg, nil
}

func encodeUnit(unit *domain.ApartmentUnitInfo) ([]byte, error) {
	if unit == nil {
		return nil, nil
	}
	data, err := json.Marshal(unit)
	if err != nil {
		return nil, fmt.Errorf("encode apartment unit: %w", err)
	}
	return data, nil
}
