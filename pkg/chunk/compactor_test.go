package chunk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/discovery"
	"github.com/withObsrvr/causer-pays-workflow/pkg/metrics"
	"github.com/withObsrvr/causer-pays-workflow/pkg/storage"
)

// inputs creates empty files named after sizes; sizedReader serves a batch
// per file whose logical size is taken from the map.
func inputs(t *testing.T, sizesMB ...int64) (string, map[string]int64) {
	t.Helper()
	root := t.TempDir()
	sizes := make(map[string]int64, len(sizesMB))
	for i, mb := range sizesMB {
		p := filepath.Join(root, fmt.Sprintf("fcas_%02d.csv", i))
		require.NoError(t, os.WriteFile(p, nil, 0644))
		sizes[p] = mb
	}
	return root, sizes
}

func sizedReader(sizes map[string]int64) ReadFunc {
	return func(ctx context.Context, f discovery.InputFile) (*causerpays.Batch, error) {
		b := causerpays.NewBatch(f.Path, 2)
		base, _ := causerpays.ParseTimestamp("2018/12/01 00:00:00")
		idx := len(sizes) - 1
		fmt.Sscanf(filepath.Base(f.Path), "fcas_%02d.csv", &idx)
		for i := 0; i < 2; i++ {
			b.AppendRow(causerpays.Row{
				// Later files carry earlier timestamps so sorting is visible.
				Datetime:      base.Add(time.Duration(100-idx*2-i) * time.Second),
				ElementNumber: int64(idx),
				Value:         float64(i),
			})
		}
		b.SizeHint = sizes[f.Path] << 20
		return b, nil
	}
}

func newCompactor(t *testing.T, cfg Config, opts ...Option) (*Compactor, string) {
	t.Helper()
	out := t.TempDir()
	if cfg.OutputDir == "" {
		cfg.OutputDir = out
	} else {
		out = cfg.OutputDir
	}
	client, err := storage.NewLocalFSClient(out, nil)
	require.NoError(t, err)
	c, err := NewCompactor(cfg, client, opts...)
	require.NoError(t, err)
	return c, out
}

func chunkFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if discovery.IsChunkName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestCompactorThreeFilesOverThreshold(t *testing.T) {
	root, sizes := inputs(t, 600, 600, 600)
	c, out := newCompactor(t, Config{
		Root:            root,
		Format:          "csv",
		SizeThresholdMB: 1500,
		SortByTimestamp: true,
	}, WithReader(sizedReader(sizes)))

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, 3, res.Files)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, 6, res.Chunks[0].Rows)
	assert.Equal(t, []string{"chunk0.parquet"}, chunkFiles(t, out))

	got, err := causerpays.ReadFile(context.Background(), filepath.Join(out, "chunk0.parquet"), causerpays.FormatParquet)
	require.NoError(t, err)
	assert.True(t, isSorted(got), "chunk rows ordered by datetime")
	assert.Equal(t, []int64{2, 2, 1, 1, 0, 0}, got.ElementNumber)
}

func isSorted(b *causerpays.Batch) bool {
	for i := 1; i < b.Len(); i++ {
		if b.Datetime[i].Before(b.Datetime[i-1]) {
			return false
		}
	}
	return true
}

func TestCompactorChunkBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		sizes     []int64
		threshold int64
		wantRows  []int
	}{
		{"never reaches threshold", []int64{100, 200, 300}, 1500, []int{6}},
		{"exact multiple leaves no remainder", []int64{750, 750, 1500}, 1500, []int{4, 2}},
		{"crossing batch joins the flushed chunk", []int64{1000, 600, 200, 1500, 100}, 1500, []int{4, 4, 2}},
		{"every batch over threshold", []int64{10, 10, 10}, 5, []int{2, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, sizes := inputs(t, tt.sizes...)
			c, out := newCompactor(t, Config{
				Root:            root,
				Format:          "csv",
				SizeThresholdMB: tt.threshold,
			}, WithReader(sizedReader(sizes)))

			res, err := c.Run(context.Background())
			require.NoError(t, err)

			var rows []int
			for i, ch := range res.Chunks {
				assert.Equal(t, discovery.ChunkName(i), ch.Key)
				rows = append(rows, ch.Rows)
			}
			assert.Equal(t, tt.wantRows, rows)
			assert.Len(t, chunkFiles(t, out), len(tt.wantRows))
		})
	}
}

func TestCompactorLegacyThreshold(t *testing.T) {
	assert.Equal(t, int64(1500)<<20, Config{}.ThresholdBytes())
	assert.Equal(t, int64(64)<<20, Config{SizeThresholdMB: 64}.ThresholdBytes())
}

func TestCompactorPrefetchMatchesSequential(t *testing.T) {
	sizesMB := []int64{700, 900, 100, 1600, 300, 300}
	var results [][]int
	for _, prefetch := range []int{0, 1, 4} {
		root, sizes := inputs(t, sizesMB...)
		c, _ := newCompactor(t, Config{
			Root:            root,
			Format:          "csv",
			SizeThresholdMB: 1500,
			Prefetch:        prefetch,
		}, WithReader(sizedReader(sizes)))

		res, err := c.Run(context.Background())
		require.NoError(t, err)
		var rows []int
		for _, ch := range res.Chunks {
			rows = append(rows, ch.Rows)
		}
		results = append(results, rows)
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func writeCSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestCompactorNoDataLoss(t *testing.T) {
	root := t.TempDir()
	var want []causerpays.Row
	for f := 0; f < 5; f++ {
		lines := []string{"TIMESTAMP,ELEMENTNUMBER,VARIABLENUMBER,VALUE,VALUEQUALITY"}
		for r := 0; r < 30; r++ {
			ts := fmt.Sprintf("2018/12/%02d 00:%02d:%02d", 1+f, r/15, (r%15)*4)
			lines = append(lines, fmt.Sprintf("%s,%d,%d,%d.5,0", ts, 300+f, r, r))
			parsed, err := causerpays.ParseTimestamp(ts)
			require.NoError(t, err)
			want = append(want, causerpays.Row{
				Datetime: parsed, ElementNumber: int64(300 + f), VariableNumber: int64(r), Value: float64(r) + 0.5,
			})
		}
		writeCSV(t, filepath.Join(root, fmt.Sprintf("day%d", f), "PUBLIC_CAUSER_PAYS.csv"), lines...)
	}

	m := metrics.NewCompaction()
	// Half a megabyte per file puts two files in each 1 MB chunk.
	reader := func(ctx context.Context, f discovery.InputFile) (*causerpays.Batch, error) {
		b, err := causerpays.ReadFile(ctx, f.Path, f.Format)
		if err != nil {
			return nil, err
		}
		b.SizeHint = 1 << 19
		return b, nil
	}
	c, out := newCompactor(t, Config{
		Root:            root,
		Format:          "csv",
		SizeThresholdMB: 1,
		SortByTimestamp: true,
		Compression:     "gzip",
	}, WithReader(reader), WithMetrics(m))

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	assert.Equal(t, int64(150), res.Rows)

	var got []causerpays.Row
	for _, name := range chunkFiles(t, out) {
		b, err := causerpays.ReadFile(context.Background(), filepath.Join(out, name), causerpays.FormatParquet)
		require.NoError(t, err)
		got = append(got, b.Rows()...)
	}
	assert.ElementsMatch(t, want, got)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.FilesRead))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChunksWritten))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.RowsWritten))
}

func TestCompactorNoMatchingFiles(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "notes.txt"), "x")

	c, out := newCompactor(t, Config{Root: root, Format: "parquet"})
	_, err := c.Run(context.Background())

	var noFiles *causerpays.NoMatchingFilesError
	require.True(t, errors.As(err, &noFiles))
	assert.Equal(t, StateFailed, c.State())
	assert.Empty(t, chunkFiles(t, out))
}

func TestCompactorSchemaMismatchKeepsEarlierChunks(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "a.csv"), "2018/12/01 00:00:00,1,2,50,0")
	writeCSV(t, filepath.Join(root, "b.csv"), "TIMESTAMP,ELEMENTNUMBER,VALUE", "2018/12/01 00:00:00,1,50")

	c, out := newCompactor(t, Config{Root: root, Format: "csv", SizeThresholdMB: 1},
		WithReader(func(ctx context.Context, f discovery.InputFile) (*causerpays.Batch, error) {
			b, err := causerpays.ReadFile(ctx, f.Path, f.Format)
			if b != nil {
				b.SizeHint = 2 << 20
			}
			return b, err
		}))

	res, err := c.Run(context.Background())
	var mismatch *causerpays.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, StateFailed, c.State())
	assert.Len(t, res.Chunks, 1)
	assert.Equal(t, []string{"chunk0.parquet"}, chunkFiles(t, out))
}

func TestCompactorPrefetchPropagatesReadError(t *testing.T) {
	root, _ := inputs(t, 1, 1, 1)
	boom := errors.New("disk on fire")
	c, _ := newCompactor(t, Config{Root: root, Format: "csv", Prefetch: 2},
		WithReader(func(ctx context.Context, f discovery.InputFile) (*causerpays.Batch, error) {
			if strings.HasSuffix(f.Path, "fcas_01.csv") {
				return nil, boom
			}
			return sizedBatch(f.Path, 1, 1), nil
		}))

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, c.State())
}

func TestCompactorExcludesEarlierChunks(t *testing.T) {
	root := t.TempDir()
	in := causerpays.NewBatch("", 1)
	r := mustTime(t, "2018/12/01 00:00:00")
	in.AppendRow(r)

	client, err := storage.NewLocalFSClient(root, nil)
	require.NoError(t, err)
	w, err := NewWriter(client, WriterConfig{}, nil)
	require.NoError(t, err)
	_, err = w.Flush(context.Background(), []*causerpays.Batch{in}, 0)
	require.NoError(t, err)
	require.NoError(t, os.Rename(filepath.Join(root, "chunk0.parquet"), filepath.Join(root, "input.parquet")))

	for run := 0; run < 2; run++ {
		c, err := NewCompactor(Config{Root: root, Format: "parquet", ExcludeChunks: true}, client)
		require.NoError(t, err)
		res, err := c.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Files, "run %d", run)
		assert.Equal(t, int64(1), res.Rows, "run %d", run)
	}
	assert.Equal(t, []string{"chunk0.parquet"}, chunkFiles(t, root))
}

func TestNewCompactorValidation(t *testing.T) {
	_, err := NewCompactor(Config{Format: "csv"}, nil)
	assert.Error(t, err)
	_, err = NewCompactor(Config{Root: "/x"}, nil)
	assert.Error(t, err)
	_, err = NewCompactor(Config{Root: "/x", Format: "csv", Prefetch: -1}, nil)
	assert.Error(t, err)
	_, err = NewCompactor(Config{Root: "/x", Format: "csv", Compression: "rar"}, nil)
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "final_flush", StateFinalFlush.String())
	assert.Equal(t, "failed", StateFailed.String())
}
