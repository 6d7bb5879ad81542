// Package record stores simulation runs in a SQLite database.
package record

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/trace"
)

// AccessEntry is one row of the access table.
type AccessEntry struct {
	RunID   string
	Seq     uint64
	Kind    string
	Addr    uint64
	Size    int
	Outcome string
}

// RunEntry is one row of the run table.
type RunEntry struct {
	RunID     string
	Trace     string
	Digest    string
	SetBits   uint
	Lines     int
	BlockBits uint
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Recorder writes every processed record to SQLite. It implements
// sim.Observer.
type Recorder struct {
	db        *sql.DB
	statement *sql.Stmt

	dbName    string
	runID     string
	seq       uint64
	pending   []AccessEntry
	batchSize int
	err       error
	finished  bool
}

// New creates <path>.sqlite3 and prepares it for a run. An empty path picks a
// unique name.
func New(path string) (*Recorder, error) {
	r := &Recorder{
		dbName:    path,
		runID:     xid.New().String(),
		batchSize: 100000,
	}

	if err := r.init(); err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

// RunID returns the identifier of the recorded run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Filename returns the database file name.
func (r *Recorder) Filename() string {
	return r.dbName + ".sqlite3"
}

func (r *Recorder) init() error {
	if r.dbName == "" {
		r.dbName = "csim_run_" + r.runID
	}
	r.dbName = strings.TrimSuffix(r.dbName, ".sqlite3")

	filename := r.Filename()
	if _, err := os.Stat(filename); err == nil {
		return errors.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	r.db = db

	if err := r.createTables(); err != nil {
		_ = db.Close()
		return err
	}

	stmt, err := r.db.Prepare(
		`INSERT INTO access (run_id, seq, kind, addr, size, outcome) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return errors.Wrap(err, "failed to prepare access statement")
	}
	r.statement = stmt

	return nil
}

func (r *Recorder) createTables() error {
	queries := []string{
		`CREATE TABLE run
		(
			run_id     VARCHAR(20) NOT NULL PRIMARY KEY,
			trace      TEXT,
			digest     VARCHAR(16),
			set_bits   INTEGER,
			lines      INTEGER,
			block_bits INTEGER,
			hits       INTEGER,
			misses     INTEGER,
			evictions  INTEGER
		);`,
		`CREATE TABLE access
		(
			run_id  VARCHAR(20) NOT NULL,
			seq     INTEGER     NOT NULL,
			kind    VARCHAR(1)  NOT NULL,
			addr    TEXT        NOT NULL,
			size    INTEGER,
			outcome VARCHAR(20)
		);`,
		`CREATE INDEX access_outcome_index ON access (outcome);`,
	}

	for _, q := range queries {
		if _, err := r.db.Exec(q); err != nil {
			return errors.Wrapf(err, "failed to execute %q", q)
		}
	}

	return nil
}

// Observe buffers one record. Every simulated access becomes its own row, so
// a modify produces two rows with the same sequence number.
func (r *Recorder) Observe(rec trace.Record, outcomes []cache.Outcome) {
	if r.finished {
		return
	}

	r.seq++

	for _, o := range outcomes {
		r.pending = append(r.pending, AccessEntry{
			RunID:   r.runID,
			Seq:     r.seq,
			Kind:    rec.Kind.String(),
			Addr:    rec.Addr,
			Size:    rec.Size,
			Outcome: o.String(),
		})
	}

	if len(r.pending) >= r.batchSize {
		if err := r.Flush(); err != nil && r.err == nil {
			r.err = err
		}
	}
}

// Flush writes the buffered accesses in one transaction.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 || r.finished {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	stmt := tx.Stmt(r.statement)
	for _, e := range r.pending {
		// SQLite integers are signed, so addresses are stored as hex text.
		_, err := stmt.Exec(e.RunID, e.Seq, e.Kind, fmt.Sprintf("%x", e.Addr), e.Size, e.Outcome)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to insert access %d", e.Seq)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit accesses")
	}

	r.pending = r.pending[:0]

	return nil
}

// Finish writes the run summary, flushes the remaining accesses and closes
// the database. The database is closed even when Finish fails.
func (r *Recorder) Finish(traceName string, digest uint64, g cache.Geometry, stats cache.Statistics) (err error) {
	if r.finished {
		return errors.New("recorder already finished")
	}

	defer func() {
		if closeErr := r.close(); err == nil {
			err = closeErr
		}
	}()

	if r.err != nil {
		return r.err
	}

	if err := r.Flush(); err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO run VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, traceName, fmt.Sprintf("%016x", digest),
		g.SetBits, g.Lines, g.BlockBits,
		stats.Hits, stats.Misses, stats.Evictions,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}

	return nil
}

// close releases the statement and the database. Later flushes are no-ops.
func (r *Recorder) close() error {
	r.finished = true
	r.pending = nil

	stmtErr := r.statement.Close()
	if err := r.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close database")
	}
	if stmtErr != nil {
		return errors.Wrap(stmtErr, "failed to close statement")
	}

	return nil
}
