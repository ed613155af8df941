// Package journal persists classroom events (joins, leaves, transfers,
// broadcast transitions) to a local sqlite database for after-class review.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Event kinds recorded by the teacher server.
const (
	KindJoin      = "join"
	KindLeave     = "leave"
	KindTransfer  = "transfer"
	KindBroadcast = "broadcast"
)

// Event is one journal row.
type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      string
	StudentID string
	Detail    string
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         DATETIME NOT NULL,
	kind       TEXT NOT NULL,
	student_id TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
`

// Journal writes events through a single goroutine; sqlite tolerates one
// writer at a time, reads run concurrently.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger

	writes   chan Event
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Open creates or opens the journal database at path.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	j := &Journal{
		db:       db,
		log:      log,
		writes:   make(chan Event, 256),
		shutdown: make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writeLoop()
	return j, nil
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()
	for {
		select {
		case ev := <-j.writes:
			j.insert(ev)
		case <-j.shutdown:
			// Drain whatever is queued before exiting.
			for {
				select {
				case ev := <-j.writes:
					j.insert(ev)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) insert(ev Event) {
	_, err := j.db.Exec(
		"INSERT INTO events (ts, kind, student_id, detail) VALUES (?, ?, ?, ?)",
		ev.Timestamp, ev.Kind, ev.StudentID, ev.Detail,
	)
	if err != nil {
		j.log.Warn().Err(err).Str("kind", ev.Kind).Msg("journal write failed")
	}
}

// Record queues an event. Fire and forget: a full queue drops the event with
// a warning rather than stalling the connection handlers.
func (j *Journal) Record(kind, studentID, detail string) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return
	}
	j.mu.RUnlock()

	ev := Event{Timestamp: time.Now().UTC(), Kind: kind, StudentID: studentID, Detail: detail}
	select {
	case j.writes <- ev:
	default:
		j.log.Warn().Str("kind", kind).Msg("journal queue full, dropping event")
	}
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, ts, kind, student_id, detail FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Kind, &ev.StudentID, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close flushes queued events and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	close(j.shutdown)
	j.wg.Wait()
	return j.db.Close()
}
