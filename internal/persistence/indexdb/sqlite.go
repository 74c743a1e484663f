package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"tickbot.ai/internal/scheduler"
)

// SQLiteIndex is a queryable secondary index of task runs. Writes go through
// a buffered channel to a single writer goroutine; the compressed JSONL event
// log stays the source of truth, so a full queue drops events.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type req struct {
	event scheduler.Event
	sync  chan struct{}
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Dropped       uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_runs (
			run_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			description TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			urgent INTEGER NOT NULL,
			first_at TEXT NOT NULL,
			last_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome ON task_runs(outcome, last_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind ON task_runs(kind, last_at);`,
		`CREATE TABLE IF NOT EXISTS task_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			at TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON task_events(run_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// TaskEvent makes the index a scheduler observer. It never blocks.
func (s *SQLiteIndex) TaskEvent(e scheduler.Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{event: e}:
	default:
		s.dropped.Add(1)
	}
}

// Sync waits until every event queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{sync: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{QueueDepth: len(s.ch), QueueCapacity: cap(s.ch), Dropped: s.dropped.Load()}
}

// SetMeta records a key such as the item catalog digest the bot ran with.
func (s *SQLiteIndex) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta(key,value,updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return v, err == nil, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	upsertRun, _ := s.db.Prepare(`INSERT INTO task_runs(run_id,kind,description,outcome,reason,attempts,ticks,urgent,first_at,last_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET
			description=excluded.description,
			outcome=excluded.outcome,
			reason=excluded.reason,
			attempts=max(task_runs.attempts, excluded.attempts),
			ticks=excluded.ticks,
			last_at=excluded.last_at`)
	insertEvent, _ := s.db.Prepare(`INSERT INTO task_events(run_id,kind,outcome,reason,attempt,tick,at,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if upsertRun != nil {
			_ = upsertRun.Close()
		}
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 200
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()
	for {
		var r req
		select {
		case <-idle.C:
			commit()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		if r.sync != nil {
			commit()
			close(r.sync)
			continue
		}
		begin()
		if tx == nil || upsertRun == nil || insertEvent == nil {
			continue
		}
		e := r.event
		at := e.At.UTC().Format(time.RFC3339Nano)
		if _, err := tx.Stmt(upsertRun).Exec(
			e.RunID, e.Kind, e.Description, string(e.Outcome), e.Reason,
			e.Attempt+1, e.Ticks, e.Urgent, at, at,
		); err != nil {
			rollback()
			continue
		}
		raw, _ := sonic.Marshal(e)
		if _, err := tx.Stmt(insertEvent).Exec(
			e.RunID, e.Kind, string(e.Outcome), e.Reason, e.Attempt, int64(e.Tick), at, string(raw),
		); err != nil {
			rollback()
			continue
		}
		opCount += 2
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}
