package clickhouse

import (
	"context"
	"sync"
	"time"

	"argus/pkg/logger"
)

// FlushFunc performs the actual INSERT for one accumulated batch
type FlushFunc func(ctx context.Context, batch []interface{}) error

// BatchWriter accumulates rows in memory and flushes them to ClickHouse in
// batches. Single row inserts are inefficient in ClickHouse; bulk loads have
// to go through batched INSERTs.
type BatchWriter struct {
	flushFunc FlushFunc
	buffer    []interface{}
	mu        sync.Mutex
	log       *logger.Logger

	maxBatchSize int
	maxAge       time.Duration
	tableName    string

	lastFlush time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
}

// BatchWriterConfig contains configuration for BatchWriter
type BatchWriterConfig struct {
	FlushFunc    FlushFunc
	TableName    string
	MaxBatchSize int           // Default: 500
	MaxAge       time.Duration // Default: 5s
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(cfg BatchWriterConfig) *BatchWriter {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}

	return &BatchWriter{
		flushFunc:    cfg.FlushFunc,
		buffer:       make([]interface{}, 0, cfg.MaxBatchSize),
		maxBatchSize: cfg.MaxBatchSize,
		maxAge:       cfg.MaxAge,
		tableName:    cfg.TableName,
		lastFlush:    time.Now(),
		stopCh:       make(chan struct{}),
		log:          logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start begins the background flush ticker
func (bw *BatchWriter) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.running {
		bw.mu.Unlock()
		return
	}
	bw.running = true
	bw.ticker = time.NewTicker(bw.maxAge)
	bw.mu.Unlock()

	bw.wg.Add(1)
	go bw.flushLoop(ctx)

	bw.log.Infow("Batch writer started", "max_batch_size", bw.maxBatchSize, "max_age", bw.maxAge)
}

// Add appends a row to the buffer, flushing when the buffer fills
func (bw *BatchWriter) Add(ctx context.Context, row interface{}) error {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, row)
	full := len(bw.buffer) >= bw.maxBatchSize
	bw.mu.Unlock()

	if full {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered rows to ClickHouse
func (bw *BatchWriter) Flush(ctx context.Context) error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}

	// Take ownership of the buffer so Add is not blocked during the insert
	batch := bw.buffer
	bw.buffer = make([]interface{}, 0, bw.maxBatchSize)
	bw.lastFlush = time.Now()
	bw.mu.Unlock()

	start := time.Now()
	if err := bw.flushFunc(ctx, batch); err != nil {
		bw.log.Errorw("Batch flush failed",
			"rows", len(batch),
			"elapsed", time.Since(start),
			"error", err,
		)
		return err
	}

	bw.log.Debugw("Batch flushed", "rows", len(batch), "elapsed", time.Since(start))
	return nil
}

func (bw *BatchWriter) flushLoop(ctx context.Context) {
	defer bw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			if err := bw.Flush(context.Background()); err != nil {
				bw.log.Errorw("Final flush failed", "error", err)
			}
			return

		case <-bw.stopCh:
			if err := bw.Flush(context.Background()); err != nil {
				bw.log.Errorw("Final flush failed", "error", err)
			}
			return

		case <-bw.ticker.C:
			if bw.BufferSize() > 0 {
				if err := bw.Flush(ctx); err != nil {
					bw.log.Errorw("Periodic flush failed", "error", err)
				}
			}
		}
	}
}

// Stop flushes any remaining rows and waits for the flush loop to exit
func (bw *BatchWriter) Stop(ctx context.Context) error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return nil
	}
	bw.running = false
	bw.mu.Unlock()

	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	close(bw.stopCh)

	done := make(chan struct{})
	go func() {
		bw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bw.log.Warnw("Batch writer stop timed out")
		return ctx.Err()
	}
}

// BufferSize returns the current buffer size
func (bw *BatchWriter) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
