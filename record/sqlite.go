// Package record stores per-access simulation logs in SQLite.
package record

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
)

const defaultBatchSize = 10000

const createAccessTable = `CREATE TABLE IF NOT EXISTS accesses (
	run_id    TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	access    INTEGER NOT NULL,
	op        TEXT NOT NULL,
	address   TEXT NOT NULL,
	size      INTEGER NOT NULL,
	set_index INTEGER NOT NULL,
	tag       TEXT NOT NULL,
	outcome   TEXT NOT NULL
)`

const createRunTable = `CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	trace             TEXT NOT NULL,
	set_index_bits    INTEGER NOT NULL,
	associativity     INTEGER NOT NULL,
	block_offset_bits INTEGER NOT NULL,
	hits              INTEGER NOT NULL,
	misses            INTEGER NOT NULL,
	evictions         INTEGER NOT NULL,
	finished_at       TEXT NOT NULL
)`

type accessRow struct {
	seq      uint64
	access   int
	op       string
	address  string
	size     uint32
	setIndex uint64
	tag      string
	outcome  string
}

// live holds the recorders that still have rows to flush at exit. A single
// atexit handler serves all of them.
var live = struct {
	sync.Mutex
	once      sync.Once
	recorders map[*SQLiteRecorder]struct{}
}{recorders: map[*SQLiteRecorder]struct{}{}}

func track(r *SQLiteRecorder) {
	live.once.Do(func() { atexit.Register(flushLive) })

	live.Lock()
	defer live.Unlock()
	live.recorders[r] = struct{}{}
}

func untrack(r *SQLiteRecorder) {
	live.Lock()
	defer live.Unlock()
	delete(live.recorders, r)
}

func flushLive() {
	live.Lock()
	defer live.Unlock()
	for r := range live.recorders {
		_ = r.Flush()
	}
}

// SQLiteRecorder is a sim.Observer that writes one row per cache access.
// Rows are buffered and inserted in batches. A database may hold many runs;
// each run has its own ID.
type SQLiteRecorder struct {
	*sql.DB
	insertAccess *sql.Stmt

	path      string
	runID     string
	batchSize int
	pending   []accessRow
	err       error
	closed    bool
}

// Option configures a SQLiteRecorder.
type Option func(*SQLiteRecorder)

// WithBatchSize sets how many rows are buffered before a write.
func WithBatchSize(n int) Option {
	return func(r *SQLiteRecorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewSQLiteRecorder opens (or creates) the database at path. A path without
// an extension gets ".sqlite3". Buffered rows are flushed at exit.
func NewSQLiteRecorder(path string, opts ...Option) (*SQLiteRecorder, error) {
	if filepath.Ext(path) == "" {
		path += ".sqlite3"
	}

	r := &SQLiteRecorder{
		path:      path,
		runID:     xid.New().String(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open access log: %w", err)
	}
	r.DB = db

	for _, stmt := range []string{createAccessTable, createRunTable} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create access log tables: %w", err)
		}
	}

	r.insertAccess, err = db.Prepare(`INSERT INTO accesses
		(run_id, seq, access, op, address, size, set_index, tag, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare access insert: %w", err)
	}

	track(r)

	return r, nil
}

// Path returns the database file.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// RunID returns the ID under which this run's rows are stored.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

// Pending returns the number of buffered rows.
func (r *SQLiteRecorder) Pending() int {
	return len(r.pending)
}

// Observe buffers one row per outcome of the event. Nothing is buffered after
// Close or after a failed write.
func (r *SQLiteRecorder) Observe(e sim.Event) {
	if r.closed || r.err != nil {
		return
	}

	for i, o := range e.Outcomes {
		r.pending = append(r.pending, accessRow{
			seq:      e.Seq,
			access:   i,
			op:       e.Record.Kind.String(),
			address:  strconv.FormatUint(e.Record.Address, 16),
			size:     e.Record.Size,
			setIndex: e.SetIndex,
			tag:      strconv.FormatUint(e.Tag, 16),
			outcome:  o.String(),
		})
	}

	if len(r.pending) >= r.batchSize {
		_ = r.Flush()
	}
}

// Flush writes the buffered rows in one transaction. The first error is kept
// and returned by every later Flush and by Close; the rows that failed are
// dropped.
func (r *SQLiteRecorder) Flush() error {
	if r.err != nil || r.closed || len(r.pending) == 0 {
		return r.err
	}

	tx, err := r.Begin()
	if err != nil {
		return r.fail(fmt.Errorf("failed to begin access log transaction: %w", err))
	}

	stmt := tx.Stmt(r.insertAccess)
	for _, row := range r.pending {
		_, err := stmt.Exec(
			r.runID,
			int64(row.seq),
			row.access,
			row.op,
			row.address,
			int64(row.size),
			int64(row.setIndex),
			row.tag,
			row.outcome,
		)
		if err != nil {
			_ = tx.Rollback()
			return r.fail(fmt.Errorf("failed to insert access row: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return r.fail(fmt.Errorf("failed to commit access log: %w", err))
	}

	r.pending = r.pending[:0]

	return nil
}

func (r *SQLiteRecorder) fail(err error) error {
	r.err = err
	r.pending = nil
	return err
}

// Finish flushes the run and stores its summary row.
func (r *SQLiteRecorder) Finish(tracePath string, geometry cache.Geometry, stats cache.Statistics) error {
	if err := r.Flush(); err != nil {
		return err
	}

	_, err := r.Exec(`INSERT INTO runs
		(run_id, trace, set_index_bits, associativity, block_offset_bits,
		 hits, misses, evictions, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID,
		tracePath,
		int64(geometry.SetIndexBits),
		geometry.Associativity,
		int64(geometry.BlockOffsetBits),
		int64(stats.Hits),
		int64(stats.Misses),
		int64(stats.Evictions),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		r.err = fmt.Errorf("failed to insert run summary: %w", err)
		return r.err
	}

	return nil
}

// Close flushes and closes the database.
func (r *SQLiteRecorder) Close() error {
	if r.closed {
		return r.err
	}

	flushErr := r.Flush()
	r.closed = true
	untrack(r)

	_ = r.insertAccess.Close()
	if err := r.DB.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("failed to close access log: %w", err)
	}

	return flushErr
}
