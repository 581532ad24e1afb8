package rasa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/pipeline"
	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/pkg/logger"
)

// Repository reads conversation events out of the Rasa tracker store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, host string, port int, user, password, database string) (*Repository, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(user), url.QueryEscape(password), host, port, database)

	// The pool connects lazily; reachability is checked per run so a slow
	// dependency cannot keep the process from starting.
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	logger.Info("Rasa repository initialized",
		zap.String("host", host),
		zap.String("database", database),
	)

	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	r.pool.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// event is one tracker entry; kinds other than user/bot are ignored.
type event struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

// FetchSince returns conversations whose events were recorded after the
// cutoff, newest first. Rows with malformed event JSON are dropped with a
// warning; the fetch continues.
func (r *Repository) FetchSince(ctx context.Context, since time.Time) ([]models.ConversationRecord, error) {
	query := `
		SELECT sender_id, events
		FROM events
		WHERE timestamp > $1
		ORDER BY timestamp DESC
	`

	rows, err := r.pool.Query(ctx, query, float64(since.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []models.ConversationRecord
	for rows.Next() {
		var senderID string
		var eventsJSON []byte

		if err := rows.Scan(&senderID, &eventsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		var events []event
		if err := json.Unmarshal(eventsJSON, &events); err != nil {
			parseErr := &pipeline.RecordParseError{RecordID: senderID, Err: err}
			logger.Warn("Dropping conversation with malformed events",
				zap.String("sender_id", senderID),
				zap.Error(parseErr),
			)
			continue
		}

		record := models.ConversationRecord{SenderID: senderID}
		for _, ev := range events {
			switch ev.Event {
			case models.RoleUser, models.RoleBot:
				if ev.Text == "" {
					continue
				}
				record.Messages = append(record.Messages, models.Message{
					Role: ev.Event,
					Text: ev.Text,
				})
			}
		}

		if len(record.Messages) > 0 {
			records = append(records, record)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}

	logger.Info("Conversations fetched",
		zap.Int("conversations", len(records)),
		zap.Time("since", since),
	)

	return records, nil
}
