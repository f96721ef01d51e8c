// Package merge joins causer pays data and registry tables.
package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guregu/null"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

// Key columns of the mapping tables.
const (
	KeyDUID           = registry.ColDUID
	KeyEMSName        = "EMSNAME"
	KeyElementNumber  = "ELEMENTNUMBER"
	KeyVariableNumber = "VARIABLENUMBER"
)

// JoinSpec names the key column on each side of a join.
type JoinSpec struct {
	LeftKey  string
	RightKey string
}

// On joins on a column with the same name on both sides.
func On(key string) JoinSpec {
	return JoinSpec{LeftKey: key, RightKey: key}
}

// LeftJoin keeps every left row and attaches the columns of each right row
// whose key equals it. A left row matching several right rows is repeated;
// one matching none keeps nulls in the right-hand columns.
//
// Keys compare after trimming, with numeric keys compared by value so "330"
// matches "330.0". Non-key columns present on both sides are coalesced: the
// left value wins unless it is null. When the key names differ both key
// columns are kept.
func LeftJoin(left, right *registry.Table, spec JoinSpec) (*registry.Table, error) {
	if err := left.Require(spec.LeftKey); err != nil {
		return nil, fmt.Errorf("left table: %w", err)
	}
	if err := right.Require(spec.RightKey); err != nil {
		return nil, fmt.Errorf("right table: %w", err)
	}

	leftKey := left.Index(spec.LeftKey)
	rightKey := right.Index(spec.RightKey)

	// Where each right column goes: an existing left column (coalesce) or a
	// new column appended after the left ones.
	columns := append([]string(nil), left.Columns...)
	target := make([]int, len(right.Columns))
	for i, c := range right.Columns {
		if i == rightKey && spec.LeftKey == spec.RightKey {
			target[i] = -1
			continue
		}
		if j := left.Index(c); j >= 0 {
			target[i] = j
			continue
		}
		target[i] = len(columns)
		columns = append(columns, c)
	}

	index := make(map[string][]int, right.Len())
	for i, row := range right.Rows {
		if k, ok := canonicalKey(row[rightKey]); ok {
			index[k] = append(index[k], i)
		}
	}

	out := registry.NewTable(columns...)
	for _, lrow := range left.Rows {
		var matches []int
		if k, ok := canonicalKey(lrow[leftKey]); ok {
			matches = index[k]
		}
		if len(matches) == 0 {
			out.AppendRow(lrow)
			continue
		}
		for _, m := range matches {
			row := make([]null.String, len(columns))
			copy(row, lrow)
			for i, cell := range right.Rows[m] {
				j := target[i]
				if j < 0 {
					continue
				}
				if j < len(lrow) && row[j].Valid {
					continue
				}
				row[j] = cell
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func canonicalKey(v null.String) (string, bool) {
	if !v.Valid {
		return "", false
	}
	s := strings.TrimSpace(v.String)
	if s == "" {
		return "", false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return s, true
}

// DUIDMappings attaches generator and FCAS provider details to a table keyed
// by DUID. fcas may be nil.
func DUIDMappings(df, genLoads, fcas *registry.Table) (*registry.Table, error) {
	out, err := LeftJoin(df, genLoads, On(KeyDUID))
	if err != nil {
		return nil, fmt.Errorf("merging generators and loads: %w", err)
	}
	if fcas == nil {
		return out, nil
	}
	out, err = LeftJoin(out, fcas, On(KeyDUID))
	if err != nil {
		return nil, fmt.Errorf("merging fcas providers: %w", err)
	}
	return out, nil
}

// CauserPaysMappings attaches element and variable descriptions to causer
// pays data. With emsDUID the element's EMSNAME is mapped to a DUID, and with
// genLoads that DUID is further resolved to generator details. genLoads
// needs emsDUID.
func CauserPaysMappings(df, elements, variables, emsDUID, genLoads *registry.Table) (*registry.Table, error) {
	if genLoads != nil && emsDUID == nil {
		return nil, fmt.Errorf("generators and loads mapping needs an EMSNAME to DUID mapping")
	}

	out, err := LeftJoin(df, elements, JoinSpec{LeftKey: causerpays.ColElementNumber, RightKey: KeyElementNumber})
	if err != nil {
		return nil, fmt.Errorf("merging elements: %w", err)
	}
	out, err = LeftJoin(out, variables, JoinSpec{LeftKey: causerpays.ColVariableNumber, RightKey: KeyVariableNumber})
	if err != nil {
		return nil, fmt.Errorf("merging variables: %w", err)
	}

	if emsDUID != nil {
		out, err = LeftJoin(out.DropColumns(KeyElementNumber), emsDUID, On(KeyEMSName))
		if err != nil {
			return nil, fmt.Errorf("merging EMSNAME to DUID: %w", err)
		}
	}
	if genLoads != nil {
		out, err = LeftJoin(out, genLoads, On(KeyDUID))
		if err != nil {
			return nil, fmt.Errorf("merging generators and loads: %w", err)
		}
	}
	return out, nil
}
