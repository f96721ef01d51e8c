package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
)

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}
}

func paths(root string, files []InputFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"b/PUBLIC_CAUSER_PAYS_2.CSV",
		"a/public_causer_pays_1.csv",
		"a/notes.txt",
		"chunk0.parquet",
		"z.csv.gz",
	)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.csv"), 0755))

	files, err := Walk(root, "csv")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a/public_causer_pays_1.csv",
		"b/PUBLIC_CAUSER_PAYS_2.CSV",
		"z.csv.gz",
	}, paths(root, files))
	for _, f := range files {
		assert.Equal(t, causerpays.FormatCSV, f.Format)
	}
}

func TestWalkDetectsFormatForFreeFilter(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "fcas_1.parquet", "fcas_2.csv")

	files, err := Walk(root, "fcas")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, causerpays.FormatParquet, files[0].Format)
	assert.Equal(t, causerpays.FormatCSV, files[1].Format)
}

func TestWalkNoMatches(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.txt")

	_, err := Walk(root, "parquet")
	var noFiles *causerpays.NoMatchingFilesError
	require.True(t, errors.As(err, &noFiles))
	assert.Equal(t, root, noFiles.Root)
	assert.Equal(t, "parquet", noFiles.Filter)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"), "csv")
	require.Error(t, err)
	var noFiles *causerpays.NoMatchingFilesError
	assert.False(t, errors.As(err, &noFiles))
}

func TestExcludeChunks(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "chunk0.parquet", "chunk12.parquet", "chunkx.parquet", "in/chunk1.parquet", "data.parquet")

	files, err := Walk(root, "parquet")
	require.NoError(t, err)

	kept := ExcludeChunks(files, root)
	assert.Equal(t, []string{"chunkx.parquet", "data.parquet", "in/chunk1.parquet"}, paths(root, kept))
	assert.Len(t, files, 5, "input slice is not modified")
}

func TestExcludeChunksSkipsEnrichedOutput(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "FCAS_01.csv", "chunk0_enriched.csv", "chunk1_enriched.csv", "chunkx_enriched.csv", "in/chunk2_enriched.csv")

	files, err := Walk(root, "csv")
	require.NoError(t, err)

	kept := ExcludeChunks(files, root)
	assert.Equal(t, []string{"FCAS_01.csv", "chunkx_enriched.csv", "in/chunk2_enriched.csv"}, paths(root, kept))
}

func TestChunkName(t *testing.T) {
	assert.Equal(t, "chunk0.parquet", ChunkName(0))
	assert.True(t, IsChunkName(ChunkName(42)))
	assert.False(t, IsChunkName("chunk.parquet"))
	assert.False(t, IsChunkName("chunk1.csv"))

	assert.Equal(t, "chunk3_enriched.csv", EnrichedName(ChunkName(3)))
	assert.True(t, IsEnrichedChunkName(EnrichedName(ChunkName(7))))
	assert.False(t, IsEnrichedChunkName("chunk_enriched.csv"))
	assert.False(t, IsEnrichedChunkName("FCAS_enriched.csv"))
}
