package causerpays

import (
	"fmt"
	"strings"
)

// NoMatchingFilesError is returned when discovery finds nothing to read.
type NoMatchingFilesError struct {
	Root   string
	Filter string
}

func (e *NoMatchingFilesError) Error() string {
	return fmt.Sprintf("no files matching %q under %s: check path and format", e.Filter, e.Root)
}

// SchemaMismatchError is returned when a text file only partially matches the
// expected source columns, or a headerless file has the wrong column count.
type SchemaMismatchError struct {
	Path    string
	Found   []string
	Missing []string
	Columns int
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Found) == 0 && e.Columns > 0 {
		return fmt.Sprintf("%s: headerless file has %d columns, want %d",
			e.Path, e.Columns, len(CanonicalColumns))
	}
	found := "none"
	if len(e.Found) > 0 {
		found = strings.Join(e.Found, ", ")
	}
	return fmt.Sprintf("%s: causer pays data missing columns %s (found %s)",
		e.Path, strings.Join(e.Missing, ", "), found)
}

// MalformedTimestampError is returned when the datetime column holds a value
// that cannot be parsed. Row is 1-based within the data rows of the file.
type MalformedTimestampError struct {
	Path  string
	Row   int
	Value string
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("%s: row %d: malformed timestamp %q: %v", e.Path, e.Row, e.Value, e.Err)
}

func (e *MalformedTimestampError) Unwrap() error {
	return e.Err
}

// ValueError is returned when a numeric column cannot be parsed.
type ValueError struct {
	Path   string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: row %d: invalid %s value %q: %v", e.Path, e.Row, e.Column, e.Value, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
