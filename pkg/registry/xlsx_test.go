package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkbook(t *testing.T, path string, sheets map[string]*Table, order ...string) {
	t.Helper()
	w := NewWorkbookWriter(path)
	defer w.Close()
	for _, name := range order {
		require.NoError(t, w.WriteTable(name, sheets[name]))
	}
	require.NoError(t, w.Save())
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registration.xlsx")

	gl := NewTable(ColDUID, ColRegion, ColTechnologyType, ColRegCap)
	gl.AppendStrings("BW01", "NSW1", "Steam Sub-Critical", "660")
	gl.AppendStrings("HPRG1", "SA1", "Battery and Inverter", "-")

	anc := NewTable(ColParticipant, ColStationName, ColRegion, ColDUID, "Unnamed: 4")
	anc.AppendStrings("Tesla", "Hornsdale", "SA1", "HPRG1", "")

	writeWorkbook(t, path, map[string]*Table{
		GeneratorsAndLoadsSheet: gl,
		AncillaryServicesSheet:  anc,
	}, GeneratorsAndLoadsSheet, AncillaryServicesSheet)

	got, err := ReadSheet(path, GeneratorsAndLoadsSheet)
	require.NoError(t, err)
	assert.Equal(t, gl.Columns, got.Columns)
	assert.Equal(t, gl.Rows, got.Rows)

	got, err = ReadSheet(path, AncillaryServicesSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{ColParticipant, ColStationName, ColRegion, ColDUID}, CleanAncillaryServices(got).Columns)
}

func TestReadSheetMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.xlsx")
	tbl := NewTable("a")
	tbl.AppendStrings("1")
	writeWorkbook(t, path, map[string]*Table{"Only": tbl}, "Only")

	_, err := ReadSheet(path, "Other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only")
}
