package database

import (
	"context"

	"chat-relay/internal/models"
)

// JournalStore persists activity rows. It is write-only: nothing reads the
// journal back into room state.
type JournalStore interface {
	Migrate(ctx context.Context) error
	InsertActivity(ctx context.Context, activity models.Activity) error
	Close() error
}

// NopJournal discards everything. It is used when no database is configured.
type NopJournal struct{}

func (NopJournal) Migrate(context.Context) error                        { return nil }
func (NopJournal) InsertActivity(context.Context, models.Activity) error { return nil }
func (NopJournal) Close() error                                         { return nil }
