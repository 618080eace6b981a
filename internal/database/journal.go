package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"
)

const insertTimeout = 5 * time.Second

// AsyncJournal queues activities for a single writer goroutine so callers never
// wait on the database. When the queue is full the activity is dropped.
type AsyncJournal struct {
	store   JournalStore
	queue   chan models.Activity
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	log     *logger.Logger
	dropped atomic.Int64
}

func NewAsyncJournal(store JournalStore, buffer int) *AsyncJournal {
	if buffer <= 0 {
		buffer = 1
	}
	j := &AsyncJournal{
		store: store,
		queue: make(chan models.Activity, buffer),
		done:  make(chan struct{}),
		log:   logger.With("database.journal"),
	}
	go j.run()
	return j
}

// Record enqueues a without blocking.
func (j *AsyncJournal) Record(a models.Activity) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- a:
	default:
		j.dropped.Add(1)
		j.log.Debug("journal queue full, dropped %s activity for %s", a.Kind, a.Room)
	}
}

func (j *AsyncJournal) run() {
	defer close(j.done)
	for a := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := j.store.InsertActivity(ctx, a); err != nil {
			j.log.Error("Error writing activity: %v", err)
		}
		cancel()
	}
}

// Dropped reports how many activities were discarded because the queue was full.
func (j *AsyncJournal) Dropped() int64 {
	return j.dropped.Load()
}

// Close drains queued activities, then closes the store.
func (j *AsyncJournal) Close() error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()
	})
	<-j.done
	return j.store.Close()
}
