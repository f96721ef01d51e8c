package chunk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/discovery"
	"github.com/withObsrvr/causer-pays-workflow/pkg/metrics"
	"github.com/withObsrvr/causer-pays-workflow/pkg/storage"
)

// LegacyThresholdMB is the fixed flush threshold of legacy mode.
const LegacyThresholdMB = 1500

// State is the phase of a compaction run.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateAccumulating
	StateFlushing
	StateFinalFlush
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateFinalFlush:
		return "final_flush"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config controls a compaction run.
type Config struct {
	Root   string
	Format string
	// OutputDir is where chunks land when writing locally. Used to skip
	// earlier chunk files when ExcludeChunks is set. Defaults to Root.
	OutputDir       string
	SizeThresholdMB int64
	SortByTimestamp bool
	// Prefetch is the number of decoded files that may wait ahead of the
	// accumulator. Zero reads synchronously.
	Prefetch      int
	Compression   string
	ExcludeChunks bool
	DryRun        bool
}

// ThresholdBytes returns the flush threshold in bytes.
func (c Config) ThresholdBytes() int64 {
	mb := c.SizeThresholdMB
	if mb <= 0 {
		mb = LegacyThresholdMB
	}
	return mb << 20
}

// Result summarises a completed run.
type Result struct {
	Files    int
	Chunks   []ChunkInfo
	Rows     int64
	Duration time.Duration
}

// ReadFunc decodes one discovered file.
type ReadFunc func(ctx context.Context, f discovery.InputFile) (*causerpays.Batch, error)

// Option customises a Compactor.
type Option func(*Compactor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compactor) { c.logger = l }
}

// WithMetrics records run metrics into m.
func WithMetrics(m *metrics.Compaction) Option {
	return func(c *Compactor) { c.metrics = m }
}

// WithReader replaces the file decoder.
func WithReader(fn ReadFunc) Option {
	return func(c *Compactor) { c.read = fn }
}

// Compactor runs discovery, accumulation and flushing for one root.
type Compactor struct {
	config  Config
	writer  *Writer
	read    ReadFunc
	metrics *metrics.Compaction
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// NewCompactor validates cfg and prepares a run writing through client.
func NewCompactor(cfg Config, client storage.Client, opts ...Option) (*Compactor, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("root path is required")
	}
	if cfg.Format == "" {
		return nil, fmt.Errorf("format is required")
	}
	if cfg.Prefetch < 0 {
		return nil, fmt.Errorf("prefetch must not be negative")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.Root
	}

	c := &Compactor{
		config: cfg,
		read: func(ctx context.Context, f discovery.InputFile) (*causerpays.Batch, error) {
			return causerpays.ReadFile(ctx, f.Path, f.Format)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewCompaction()
	}
	c.logger = c.logger.With("component", "Compactor")

	w, err := NewWriter(client, WriterConfig{
		Compression:     cfg.Compression,
		SortByTimestamp: cfg.SortByTimestamp,
		DryRun:          cfg.DryRun,
	}, c.logger)
	if err != nil {
		return nil, err
	}
	c.writer = w
	return c, nil
}

// State returns the current phase.
func (c *Compactor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Compactor) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.logger.Debug("state change", "from", prev.String(), "to", s.String())
	}
}

// Run executes one compaction. Any error leaves the Compactor in
// StateFailed; chunks flushed before the error remain in place.
func (c *Compactor) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := c.run(ctx)
	res.Duration = time.Since(start)
	c.metrics.ObserveRun(res.Duration, err == nil)

	if err != nil {
		c.setState(StateFailed)
		c.logger.Error("compaction failed", "error", err, "chunks_written", len(res.Chunks))
		return res, err
	}
	c.setState(StateDone)
	c.logger.Info("compaction complete",
		"files", res.Files,
		"rows", res.Rows,
		"chunks", len(res.Chunks),
		"duration", res.Duration,
	)
	return res, nil
}

func (c *Compactor) run(ctx context.Context) (*Result, error) {
	res := &Result{}

	c.setState(StateDiscovering)
	files, err := discovery.Walk(c.config.Root, c.config.Format)
	if err != nil {
		return res, err
	}
	if c.config.ExcludeChunks {
		files = discovery.ExcludeChunks(files, c.config.OutputDir)
		if len(files) == 0 {
			return res, &causerpays.NoMatchingFilesError{Root: c.config.Root, Filter: c.config.Format}
		}
	}
	res.Files = len(files)

	limit := c.config.ThresholdBytes()
	c.logger.Info("discovered input files",
		"root", c.config.Root,
		"format", c.config.Format,
		"files", len(files),
		"threshold_bytes", limit,
		"sorted", c.config.SortByTimestamp,
	)

	var (
		acc Accumulator
		seq int
	)
	flush := func() error {
		batches := acc.Drain()
		c.metrics.WorkingSet.Set(0)

		started := time.Now()
		info, err := c.writer.Flush(ctx, batches, seq)
		if err != nil {
			return err
		}
		c.metrics.FlushDuration.Observe(time.Since(started).Seconds())
		c.metrics.ChunksWritten.Inc()
		c.metrics.RowsWritten.Add(float64(info.Rows))
		c.metrics.BytesWritten.Add(float64(info.Bytes))

		res.Chunks = append(res.Chunks, info)
		seq++
		return nil
	}

	c.setState(StateAccumulating)
	err = c.each(ctx, files, func(b *causerpays.Batch) error {
		acc.Append(b)
		res.Rows += int64(b.Len())
		c.metrics.FilesRead.Inc()
		c.metrics.RowsRead.Add(float64(b.Len()))
		c.metrics.WorkingSet.Set(float64(acc.Size()))
		c.logger.Debug("appended batch",
			"source", b.Source,
			"rows", b.Len(),
			"working_set_bytes", acc.Size(),
		)

		if !acc.Reached(limit) {
			return nil
		}
		c.setState(StateFlushing)
		if err := flush(); err != nil {
			return err
		}
		c.setState(StateAccumulating)
		return nil
	})
	if err != nil {
		return res, err
	}

	if !acc.Empty() {
		c.setState(StateFinalFlush)
		if err := flush(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// each feeds the decoded files to fn in discovery order. With prefetch
// enabled a single reader goroutine decodes ahead into a bounded queue while
// fn keeps running on the calling goroutine.
func (c *Compactor) each(ctx context.Context, files []discovery.InputFile, fn func(*causerpays.Batch) error) error {
	if c.config.Prefetch == 0 {
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := c.read(ctx, f)
			if err != nil {
				return err
			}
			if err := fn(b); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *causerpays.Batch, c.config.Prefetch)
	g.Go(func() error {
		defer close(queue)
		for _, f := range files {
			b, err := c.read(gctx, f)
			if err != nil {
				return err
			}
			select {
			case queue <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var consumeErr error
	for b := range queue {
		if consumeErr != nil {
			continue
		}
		if err := fn(b); err != nil {
			consumeErr = err
			cancel()
		}
	}

	readErr := g.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return readErr
	}
	return ctx.Err()
}
