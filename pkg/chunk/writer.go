package chunk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/discovery"
	"github.com/withObsrvr/causer-pays-workflow/pkg/storage"
)

// ChunkInfo describes one written chunk file.
type ChunkInfo struct {
	Seq      int
	Key      string
	Location string
	Rows     int
	Bytes    int64
	MinTime  time.Time
	MaxTime  time.Time
}

// WriterConfig controls chunk encoding.
type WriterConfig struct {
	Compression     string
	SortByTimestamp bool
	// RowGroupRows caps rows per parquet row group. Zero means 1Mi rows.
	RowGroupRows int64
	DryRun       bool
}

// Writer encodes working sets as parquet and stores them.
type Writer struct {
	client      storage.Client
	config      WriterConfig
	compression compress.Compression
	mem         memory.Allocator
	logger      *slog.Logger
}

// NewWriter validates cfg and returns a Writer storing through client.
func NewWriter(client storage.Client, cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	codec, err := ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if cfg.RowGroupRows <= 0 {
		cfg.RowGroupRows = 1 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		client:      client,
		config:      cfg,
		compression: codec,
		mem:         memory.DefaultAllocator,
		logger:      logger.With("component", "ChunkWriter"),
	}, nil
}

// Flush concatenates batches, optionally sorts by datetime, and writes the
// result as chunk{seq}.parquet.
func (w *Writer) Flush(ctx context.Context, batches []*causerpays.Batch, seq int) (ChunkInfo, error) {
	all := causerpays.Concat(batches)
	if w.config.SortByTimestamp {
		all.SortByDatetime()
	}

	key := discovery.ChunkName(seq)
	info := ChunkInfo{
		Seq:      seq,
		Key:      key,
		Location: w.client.Location(key),
		Rows:     all.Len(),
	}
	info.MinTime, info.MaxTime = all.TimeRange()

	if w.config.DryRun {
		w.logger.Info("[DRY RUN] would write chunk", "key", key, "rows", info.Rows, "batches", len(batches))
		return info, nil
	}

	rec := all.ArrowRecord(w.mem)
	defer rec.Release()

	data, err := w.encode(rec)
	if err != nil {
		return info, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := w.client.Write(ctx, key, data); err != nil {
		return info, fmt.Errorf("failed to write %s: %w", key, err)
	}
	info.Bytes = int64(len(data))

	w.logger.Info("wrote chunk",
		"location", info.Location,
		"rows", info.Rows,
		"bytes", info.Bytes,
		"sorted", w.config.SortByTimestamp,
	)
	return info, nil
}

func (w *Writer) encode(rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	props := parquet.NewWriterProperties(
		parquet.WithCompression(w.compression),
		parquet.WithDataPageSize(1024*1024),
		parquet.WithMaxRowGroupLength(w.config.RowGroupRows),
		parquet.WithAllocator(w.mem),
	)

	writer, err := pqarrow.NewFileWriter(rec.Schema(), &buf, props, pqarrow.NewArrowWriterProperties())
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCompression maps a codec name to its parquet codec. Empty means snappy.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported compression %q", name)
	}
}
