package causerpays

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. AEMO files use slash-separated dates;
// re-exported data tends to use ISO forms.
var timestampLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02",
	"2006-01-02",
}

// ParseTimestamp parses a market timestamp. Values without a zone are read
// as UTC; market data is stored naive and compared naive downstream.
func ParseTimestamp(s string) (time.Time, error) {
	v := strings.Trim(strings.TrimSpace(s), `"`)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no known layout matches")
}
