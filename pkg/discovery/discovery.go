// Package discovery finds input files for a compaction run.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
)

// InputFile is a discovered file and the format it will be read as.
type InputFile struct {
	Path   string
	Format causerpays.Format
}

// Walk returns every regular file under root whose name contains filter,
// compared case-insensitively, sorted lexicographically by path. An empty
// result is a *causerpays.NoMatchingFilesError.
func Walk(root, filter string) ([]InputFile, error) {
	format := formatForFilter(filter)
	needle := strings.ToLower(filter)

	var files []InputFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		if !strings.Contains(strings.ToLower(d.Name()), needle) {
			return nil
		}
		f := format
		if f == "" {
			f = causerpays.DetectFormat(path)
		}
		files = append(files, InputFile{Path: path, Format: f})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, &causerpays.NoMatchingFilesError{Root: root, Filter: filter}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// formatForFilter returns the format implied by the filter, or "" when each
// file's own name decides.
func formatForFilter(filter string) causerpays.Format {
	f, err := causerpays.ParseFormat(filter)
	if err != nil {
		return ""
	}
	return f
}

// ChunkName is the file name of chunk seq.
func ChunkName(seq int) string {
	return fmt.Sprintf("chunk%d.parquet", seq)
}

// IsChunkName reports whether name has the chunk{N}.parquet form.
func IsChunkName(name string) bool {
	rest, ok := strings.CutPrefix(name, "chunk")
	if !ok {
		return false
	}
	digits, ok := strings.CutSuffix(rest, ".parquet")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EnrichedName is the file name of the enriched CSV written for a chunk.
func EnrichedName(chunkName string) string {
	return strings.TrimSuffix(chunkName, filepath.Ext(chunkName)) + "_enriched.csv"
}

// IsEnrichedChunkName reports whether name has the chunk{N}_enriched.csv form.
func IsEnrichedChunkName(name string) bool {
	base, ok := strings.CutSuffix(name, "_enriched.csv")
	return ok && IsChunkName(base+".parquet")
}

// ExcludeChunks drops chunk{N}.parquet files and their chunk{N}_enriched.csv
// companions located directly in dir.
func ExcludeChunks(files []InputFile, dir string) []InputFile {
	dir = filepath.Clean(dir)
	out := files[:0:0]
	for _, f := range files {
		name := filepath.Base(f.Path)
		if filepath.Dir(f.Path) == dir && (IsChunkName(name) || IsEnrichedChunkName(name)) {
			continue
		}
		out = append(out, f)
	}
	return out
}
