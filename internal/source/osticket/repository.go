package osticket

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/pkg/logger"
)

// Repository reads resolved tickets out of the osTicket MySQL schema.
type Repository struct {
	db               *sql.DB
	resolvedStatusID int
}

func NewRepository(host string, port int, user, password, database string, resolvedStatusID int) (*Repository, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		user, password, host, port, database)

	// Connections are lazy; reachability is checked per run.
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	logger.Info("osTicket repository initialized",
		zap.String("host", host),
		zap.String("database", database),
	)

	return &Repository{db: db, resolvedStatusID: resolvedStatusID}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FetchResolvedSince returns tickets in the resolved status updated after
// the cutoff, newest first, each with its thread entries in posting
// order.
func (r *Repository) FetchResolvedSince(ctx context.Context, since time.Time) ([]models.TicketThread, error) {
	query := `
		SELECT t.ticket_id, t.number, te.title, te.body, te.staff_id,
		       te.created, t.created, t.updated, t.status_id
		FROM ost_ticket t
		JOIN ost_thread th ON t.ticket_id = th.object_id AND th.object_type = 'T'
		JOIN ost_thread_entry te ON th.id = te.thread_id
		WHERE t.status_id = ? AND t.updated > ?
		ORDER BY t.updated DESC, te.created ASC
	`

	rows, err := r.db.QueryContext(ctx, query, r.resolvedStatusID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var threads []models.TicketThread
	index := make(map[int64]int)

	for rows.Next() {
		var (
			ticketID         int64
			number           string
			title, body      sql.NullString
			staffID          sql.NullInt64
			entryCreated     time.Time
			created, updated time.Time
			statusID         int
		)

		err := rows.Scan(&ticketID, &number, &title, &body, &staffID,
			&entryCreated, &created, &updated, &statusID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}

		entry := models.ThreadEntry{
			Title:   title.String,
			Body:    body.String,
			Staff:   staffID.Valid && staffID.Int64 > 0,
			Created: entryCreated,
		}

		pos, seen := index[ticketID]
		if !seen {
			index[ticketID] = len(threads)
			threads = append(threads, models.TicketThread{
				TicketID: ticketID,
				Number:   number,
				Subject:  title.String,
				StatusID: statusID,
				Created:  created,
				Updated:  updated,
				Entries:  []models.ThreadEntry{entry},
			})
			continue
		}
		threads[pos].Entries = append(threads[pos].Entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}

	logger.Info("Resolved tickets fetched",
		zap.Int("tickets", len(threads)),
		zap.Time("since", since),
	)

	return threads, nil
}
