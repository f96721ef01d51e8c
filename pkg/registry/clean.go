package registry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/guregu/null"
)

// Column names used by the Registration and Exemption List.
const (
	ColDUID           = "DUID"
	ColRegion         = "Region"
	ColParticipant    = "Participant"
	ColStationName    = "Station Name"
	ColTechnologyType = "Technology Type - Descriptor"
	ColRegCap         = "Reg Cap (MW)"
)

// FCASProviderColumns is the projection written for unique FCAS providers.
var FCASProviderColumns = []string{ColDUID, ColRegion, ColParticipant, ColStationName}

// technologyAliases condenses the registration list's technology
// descriptors, which vary by case and wording, to one label per technology.
var technologyAliases = map[string]string{
	"Battery and Inverter":              "Battery",
	"Combined Cycle Gas Turbine (CCGT)": "CCGT",
	"Photovoltaic Flat panel":           "PV",
	"Photovoltaic Tracking  Flat Panel": "PV",
	"Photovoltaic Tracking Flat Panel":  "PV",
	"Photovoltaic Tracking Flat panel":  "PV",
	"Wind - Onshore":                    "Wind",
	"Pump Storage":                      "Pump/Load",
	"-":                                 "Pump/Load",
}

// NormaliseTechnology maps a technology descriptor to its condensed label.
// Unknown labels pass through unchanged, so the mapping is idempotent.
func NormaliseTechnology(label string) string {
	if canonical, ok := technologyAliases[label]; ok {
		return canonical
	}
	return label
}

// CleanTechnologyTypes returns a copy of t with condensed technology labels.
func CleanTechnologyTypes(t *Table) (*Table, error) {
	if err := t.Require(ColTechnologyType); err != nil {
		return nil, err
	}
	out := t.Clone()
	idx := out.Index(ColTechnologyType)
	for _, row := range out.Rows {
		if row[idx].Valid {
			row[idx] = null.StringFrom(NormaliseTechnology(row[idx].String))
		}
	}
	return out, nil
}

// InvalidCapacityError is returned when a capacity cell is neither the "-"
// placeholder nor a number. Row is 1-based.
type InvalidCapacityError struct {
	Row   int
	DUID  string
	Value string
	Err   error
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("row %d (DUID %s): invalid capacity %q: %v", e.Row, e.DUID, e.Value, e.Err)
}

func (e *InvalidCapacityError) Unwrap() error {
	return e.Err
}

// ParseCapacity parses a registered capacity. The "-" placeholder means zero.
// Only finite decimal numbers are accepted.
func ParseCapacity(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "-" {
		return 0, nil
	}
	if strings.ContainsAny(v, "xX_,") {
		return 0, fmt.Errorf("not a decimal number")
	}
	mw, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(mw) || math.IsInf(mw, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return mw, nil
}

// CleanCapacities returns a copy of t with numeric registered capacities.
// Null cells stay null.
func CleanCapacities(t *Table) (*Table, error) {
	if err := t.Require(ColRegCap); err != nil {
		return nil, err
	}
	out := t.Clone()
	idx := out.Index(ColRegCap)
	for i, row := range out.Rows {
		if !row[idx].Valid {
			continue
		}
		mw, err := ParseCapacity(row[idx].String)
		if err != nil {
			return nil, &InvalidCapacityError{
				Row:   i + 1,
				DUID:  out.Get(i, ColDUID).String,
				Value: row[idx].String,
				Err:   err,
			}
		}
		row[idx] = null.StringFrom(strconv.FormatFloat(mw, 'f', -1, 64))
	}
	return out, nil
}

// CleanAncillaryServices tidies the Ancillary Services sheet: spreadsheet
// padding columns and columns with no values are dropped.
func CleanAncillaryServices(t *Table) *Table {
	return t.DropEmptyColumns()
}

// UniqueFCASProviders returns ancillary service providers whose DUID is not
// registered as a generator or scheduled load, deduplicated and projected to
// FCASProviderColumns.
func UniqueFCASProviders(providers, genLoads *Table) (*Table, error) {
	if err := providers.Require(FCASProviderColumns...); err != nil {
		return nil, fmt.Errorf("ancillary service providers: %w", err)
	}
	if err := genLoads.Require(ColDUID); err != nil {
		return nil, fmt.Errorf("generators and loads: %w", err)
	}

	registered := make(map[string]bool, genLoads.Len())
	for _, d := range genLoads.Column(ColDUID) {
		if d.Valid {
			registered[d.String] = true
		}
	}

	duid := providers.Index(ColDUID)
	unique := providers.Filter(func(row []null.String) bool {
		return row[duid].Valid && !registered[row[duid].String]
	})

	deduped, err := unique.DistinctBy(FCASProviderColumns...)
	if err != nil {
		return nil, err
	}
	return deduped.Select(FCASProviderColumns...)
}
