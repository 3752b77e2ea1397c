// Package worker runs colour extraction for uploaded garments.
//
// Each job is decoded and handed to the extractor. Whatever happens, the item
// ends up with a colour: failures store the neutral default so that selection
// never waits on an item that will not resolve.
package worker

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/stylist/internal/adapters/mq/queue"
	"github.com/okian/stylist/internal/domain/collage"
	"github.com/okian/stylist/internal/domain/palette"
	"github.com/okian/stylist/pkg/logger"
	"github.com/okian/stylist/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultExtractTimeout = 10 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Extractor returns the representative colour of an image.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (string, error)
}

// ColorSetter stores an extracted colour.
type ColorSetter interface {
	SetColor(ctx context.Context, sessionID, itemID, color string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes extraction jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	extractor Extractor
	store     ColorSetter
	name      string

	defaultColor   string
	extractTimeout time.Duration
	onBusy         func(delta int)
	onResult       func(fallback bool)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ex Extractor, store ColorSetter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		extractor:      ex,
		store:          store,
		name:           "worker",
		defaultColor:   palette.DefaultColor,
		extractTimeout: defaultExtractTimeout,
		onBusy:         func(int) {},
		onResult:       func(bool) {},
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.onBusy(1)
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("item", j.ItemID), logger.Error(err))
			}
			w.onBusy(-1)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Extract decodes src and extracts its colour. The default colour is
// returned together with the error when either step fails.
func (w *InMemoryWorker) Extract(ctx context.Context, src []byte) (string, error) {
	img, err := collage.Decode(src)
	if err != nil {
		return w.defaultColor, err
	}
	ctx, cancel := context.WithTimeout(ctx, w.extractTimeout)
	defer cancel()

	hex, err := w.extractor.Extract(ctx, img)
	if err != nil {
		return w.defaultColor, fmt.Errorf("extract: %w", err)
	}
	norm, err := palette.Normalize(hex)
	if err != nil {
		return w.defaultColor, err
	}
	return norm, nil
}

// process handles a single job.
func (w *InMemoryWorker) process(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(time.Since(start))
	}()

	color, err := w.Extract(ctx, j.Image)
	result := metrics.ExtractionOK
	if err != nil {
		result = metrics.ExtractionFallback
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "extraction")
		w.logger.Warn(ctx, "colour extraction failed, using default",
			logger.String("session", j.SessionID),
			logger.String("item", j.ItemID),
			logger.String("color", color),
			logger.Error(err),
		)
	}
	metrics.RecordExtraction(result, time.Since(start))
	w.onResult(err != nil)

	if err := w.store.SetColor(ctx, j.SessionID, j.ItemID, color); err != nil {
		metrics.RecordErrorByComponent("worker", "store")
		return fmt.Errorf("store colour for %s: %w", j.ItemID, err)
	}
	w.logger.Debug(ctx, "colour extracted",
		logger.String("session", j.SessionID),
		logger.String("item", j.ItemID),
		logger.String("color", color),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	shutdownOnce sync.Once
	logger       logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Queue, ex Extractor, store ColorSetter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)), withBusyHook(p.busy))
		p.workers[i] = NewInMemoryWorker(q, ex, store, wopts...)
	}
	p.logger = p.workers[0].logger

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

func (p *Pool) busy(delta int) {
	active := int(p.active.Add(int64(delta)))
	metrics.UpdateWorkerActiveCount(active)
	metrics.UpdateWorkerIdleCount(len(p.workers) - active)
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Active returns the number of workers processing a job.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
