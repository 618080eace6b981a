package database

import (
	"context"
	"fmt"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createActivityTable = `
	CREATE TABLE IF NOT EXISTS room_activity (
		id          BIGSERIAL PRIMARY KEY,
		kind        TEXT NOT NULL,
		room_id     TEXT NOT NULL,
		username    TEXT NOT NULL DEFAULT '',
		message_id  TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL
	)`

const insertActivity = `
	INSERT INTO room_activity (kind, room_id, username, message_id, occurred_at)
	VALUES ($1, $2, $3, $4, $5)`

type PostgresJournal struct {
	pool *pgxpool.Pool
}

func NewPostgresJournal(ctx context.Context, databaseURL string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to journal database successfully")
	return &PostgresJournal{pool: pool}, nil
}

func (db *PostgresJournal) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, createActivityTable); err != nil {
		return fmt.Errorf("failed to create room_activity: %w", err)
	}
	return nil
}

func (db *PostgresJournal) InsertActivity(ctx context.Context, a models.Activity) error {
	_, err := db.pool.Exec(ctx, insertActivity, string(a.Kind), a.Room, a.Username, a.MessageID, a.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s activity: %w", a.Kind, err)
	}
	return nil
}

func (db *PostgresJournal) Close() error {
	db.pool.Close()
	return nil
}
