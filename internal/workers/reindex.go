package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/mapper"
	"emergencyDashboard/internal/storage"
	"emergencyDashboard/pkg/e"
)

// RowSource lists the rows to rebuild and lets each one be re-read under a
// row lock, so a concurrent write cannot slip between the read and the index.
type RowSource interface {
	FindAll(ctx context.Context) ([]domain.Row, error)
	InTx(ctx context.Context, fn storage.TxFunc) error
}

type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc domain.Document) error
}

type ReindexObserver interface {
	ObserveReindexed(indexed, failed, skipped int)
}

// Reindexer rebuilds the search projection from the primary store with a
// fixed pool of workers. Only one rebuild runs at a time.
type Reindexer struct {
	rows     RowSource
	index    DocumentIndexer
	observer ReindexObserver
	logger   *slog.Logger
	poolSize int

	mu sync.Mutex
}

func NewReindexer(rows RowSource, index DocumentIndexer, observer ReindexObserver, logger *slog.Logger, poolSize int) *Reindexer {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Reindexer{
		rows:     rows,
		index:    index,
		observer: observer,
		logger:   logger,
		poolSize: poolSize,
	}
}

// Reindex indexes every row. Rows deleted after the listing are skipped.
// Failures of single documents are counted, not returned; only a failure to
// read the rows aborts the run.
func (w *Reindexer) Reindex(ctx context.Context) (domain.ReindexResult, error) {
	const op = "workers.Reindexer.Reindex"

	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.rows.FindAll(ctx)
	if err != nil {
		w.logger.Error("load rows failed", slog.String("op", op), slog.Any("error", err))
		return domain.ReindexResult{}, err
	}
	w.logger.Info("reindex started", slog.String("op", op), slog.Int("rows", len(rows)), slog.Int("workers", w.poolSize))

	jobs := make(chan uuid.UUID)
	var c counters
	var wg sync.WaitGroup

	for i := 0; i < w.poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker(ctx, jobs, &c)
		}()
	}

	w.producer(ctx, rows, jobs)
	wg.Wait()

	res := domain.ReindexResult{
		Indexed: int(c.indexed.Load()),
		Failed:  int(c.failed.Load()),
		Skipped: int(c.skipped.Load()),
	}
	// rows never handed out because of cancellation count as failed
	res.Failed += len(rows) - res.Indexed - res.Failed - res.Skipped

	if w.observer != nil {
		w.observer.ObserveReindexed(res.Indexed, res.Failed, res.Skipped)
	}
	w.logger.Info("reindex finished", slog.String("op", op),
		slog.Int("indexed", res.Indexed), slog.Int("failed", res.Failed), slog.Int("skipped", res.Skipped))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

type counters struct {
	indexed, failed, skipped atomic.Int64
}

func (w *Reindexer) producer(ctx context.Context, rows []domain.Row, jobs chan<- uuid.UUID) {
	defer close(jobs)
	for _, r := range rows {
		select {
		case <-ctx.Done():
			return
		case jobs <- r.ID:
		}
	}
}

func (w *Reindexer) worker(ctx context.Context, jobs <-chan uuid.UUID, c *counters) {
	const op = "workers.Reindexer.worker"

	for id := range jobs {
		gone, err := w.reindexRow(ctx, id)
		switch {
		case gone:
			c.skipped.Add(1)
			w.logger.Debug("row deleted since listing", slog.String("op", op), slog.String("id", id.String()))
		case err != nil:
			c.failed.Add(1)
			w.logger.Warn("index document failed", slog.String("op", op), slog.String("id", id.String()), slog.Any("error", err))
		default:
			c.indexed.Add(1)
		}
	}
}

// reindexRow indexes the current version of the row while holding a share
// lock on it. gone reports that the row no longer exists.
func (w *Reindexer) reindexRow(ctx context.Context, id uuid.UUID) (gone bool, err error) {
	var indexed bool
	err = w.rows.InTx(ctx, func(ctx context.Context, rows storage.RowWriter) error {
		fresh, err := rows.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, e.ErrNotFound) {
				gone = true
				return nil
			}
			return err
		}
		if err := w.index.IndexDocument(ctx, mapper.RowToDocument(*fresh)); err != nil {
			return err
		}
		indexed = true
		return nil
	})
	// the transaction only reads, so a failed commit does not undo the document
	if indexed && errors.Is(err, storage.ErrCommitFailed) {
		err = nil
	}
	return gone, err
}
