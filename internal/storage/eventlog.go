package storage

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/nikhil/clashforge/internal/models"
)

// EventLog appends an immutable audit row per broadcast event. Appends are
// best-effort; the broadcaster logs and moves on when one fails.
//
// Expected schema:
//
//	CREATE TABLE broadcast_events (
//	    id            BIGINT AUTO_INCREMENT PRIMARY KEY,
//	    event_type    VARCHAR(64)  NOT NULL,
//	    tournament_id VARCHAR(128) NOT NULL DEFAULT '',
//	    caused_by     VARCHAR(128) NOT NULL DEFAULT '',
//	    payload       JSON,
//	    created_at    TIMESTAMP    NOT NULL
//	);
type EventLog struct {
	db *sql.DB
}

// NewEventLog opens the mysql connection backing the audit log.
func NewEventLog(dsn string) (*EventLog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &EventLog{db: db}, nil
}

// Close releases the database handle.
func (l *EventLog) Close() error {
	return l.db.Close()
}

// Append writes one audit row.
func (l *EventLog) Append(ctx context.Context, rec *models.EventRecord) error {
	query := `
		INSERT INTO broadcast_events (event_type, tournament_id, caused_by, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		rec.Type, rec.TournamentID, rec.CausedBy, rec.Payload, rec.CreatedAt)
	return err
}
