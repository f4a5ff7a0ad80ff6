package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"packetflow/internal/repository"

	_ "modernc.org/sqlite"
)

// DefaultBatchSize is the number of buffered deliveries that wakes the writer
const DefaultBatchSize = 64

// DefaultListLimit applies when ListDeliveries is called without a limit
const DefaultListLimit = 100

// ErrClosed is returned by writes after Close
var ErrClosed = errors.New("repository closed")

// Option configures a Repository
type Option func(*Repository)

// WithBatchSize sets how many buffered deliveries wake the background writer
func WithBatchSize(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger sets the logger used for background flush failures
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l.Named("sqlite")
		}
	}
}

// Repository implements repository.Repository using SQLite.
//
// RecordDelivery only appends to an in-memory buffer. Rows reach the
// database through Flush, Close, the reads, or the background writer that
// wakes once a full batch is buffered, so callers never wait on a commit.
type Repository struct {
	db        *sql.DB
	logger    *zap.Logger
	batchSize int

	// writeMu serializes transactions; mu only guards the buffer.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending []repository.Delivery
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. Repositories still open when the
// process exits through atexit are flushed.
func New(dbPath string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers on file databases.
	db.SetMaxOpenConns(1)

	repo := &Repository{
		db:        db,
		logger:    zap.NewNop(),
		batchSize: DefaultBatchSize,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	go repo.writeLoop()
	track(repo)

	return repo, nil
}

var (
	exitHook sync.Once

	openMu sync.Mutex
	open   = map[*Repository]struct{}{}
)

// track adds r to the set flushed at exit. The exit handler is registered
// once per process.
func track(r *Repository) {
	exitHook.Do(func() { atexit.Register(flushOpen) })

	openMu.Lock()
	open[r] = struct{}{}
	openMu.Unlock()
}

func untrack(r *Repository) {
	openMu.Lock()
	delete(open, r)
	openMu.Unlock()
}

func flushOpen() {
	openMu.Lock()
	repos := make([]*Repository, 0, len(open))
	for r := range open {
		repos = append(repos, r)
	}
	openMu.Unlock()

	for _, r := range repos {
		if err := r.Flush(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
			r.logger.Error("flush at exit failed", zap.Error(err))
		}
	}
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		packet_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		path TEXT,
		hops INTEGER NOT NULL,
		spawned_frame INTEGER NOT NULL,
		delivered_frame INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_run ON deliveries(run_id);
	CREATE INDEX IF NOT EXISTS idx_deliveries_pair ON deliveries(source, destination);
	`

	_, err := r.db.Exec(schema)
	return err
}

// RecordDelivery buffers d. It never touches the database; a full batch
// wakes the background writer.
func (r *Repository) RecordDelivery(ctx context.Context, d repository.Delivery) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.pending = append(r.pending, d)
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if full {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (r *Repository) writeLoop() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case <-r.wake:
			if err := r.Flush(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
				r.logger.Warn("background flush failed", zap.Error(err))
			}
		}
	}
}

// Pending returns the number of buffered deliveries
func (r *Repository) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush writes all buffered deliveries in one transaction. Deliveries
// recorded while the transaction runs stay buffered for the next flush.
func (r *Repository) Flush(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.mu.Unlock()

	return r.flushLocked(ctx)
}

// flushLocked drains the buffer and writes it. The caller holds writeMu.
// A failed batch is put back ahead of anything recorded meanwhile.
func (r *Repository) flushLocked(ctx context.Context) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if err := r.write(ctx, batch); err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Repository) write(ctx context.Context, batch []repository.Delivery) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range batch {
		args, err := deliveryInsertArgs(d)
		if err != nil {
			return fmt.Errorf("failed to encode delivery %s/%d: %w", d.RunID, d.PacketID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert delivery: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deliveries: %w", err)
	}

	return nil
}

// ListDeliveries returns the most recent deliveries first
func (r *Repository) ListDeliveries(ctx context.Context, runID string, limit int) ([]repository.Delivery, error) {
	if err := r.Flush(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + deliveryColumns + ` FROM deliveries`
	args := []interface{}{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []repository.Delivery{}
	for rows.Next() {
		var row deliveryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode delivery path: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}

	return deliveries, nil
}

// Stats summarizes one run, or every run when runID is empty
func (r *Repository) Stats(ctx context.Context, runID string) (repository.Stats, error) {
	if err := r.Flush(ctx); err != nil {
		return repository.Stats{}, err
	}

	where := ""
	args := []interface{}{}
	if runID != "" {
		where = ` WHERE run_id = ?`
		args = append(args, runID)
	}

	stats := repository.Stats{RunID: runID, ByPair: map[string]int{}}

	var meanHops, meanFrames sql.NullFloat64
	var maxHops sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(hops), AVG(delivered_frame - spawned_frame), MAX(hops)
		FROM deliveries`+where, args...).Scan(&stats.Deliveries, &meanHops, &meanFrames, &maxHops)
	if err != nil {
		return repository.Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	stats.MeanHops = meanHops.Float64
	stats.MeanFrames = meanFrames.Float64
	stats.MaxHops = int(maxHops.Int64)

	rows, err := r.db.QueryContext(ctx, `
		SELECT source, destination, COUNT(*)
		FROM deliveries`+where+`
		GROUP BY source, destination`, args...)
	if err != nil {
		return repository.Stats{}, fmt.Errorf("failed to query pair counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, destination string
		var count int
		if err := rows.Scan(&source, &destination, &count); err != nil {
			return repository.Stats{}, fmt.Errorf("failed to scan pair count: %w", err)
		}
		stats.ByPair[repository.PairKey(source, destination)] = count
	}

	if err := rows.Err(); err != nil {
		return repository.Stats{}, fmt.Errorf("error iterating pair counts: %w", err)
	}

	return stats, nil
}

// Close stops the background writer, flushes buffered deliveries and closes
// the database connection
func (r *Repository) Close() error {
	r.writeMu.Lock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.writeMu.Unlock()
		return nil
	}
	r.mu.Unlock()

	flushErr := r.flushLocked(context.Background())

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.writeMu.Unlock()

	close(r.stop)
	<-r.done
	untrack(r)

	return errors.Join(flushErr, r.db.Close())
}
