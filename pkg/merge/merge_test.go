package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/causer-pays-workflow/pkg/causerpays"
	"github.com/withObsrvr/causer-pays-workflow/pkg/registry"
)

func table(cols []string, rows ...[]string) *registry.Table {
	t := registry.NewTable(cols...)
	for _, r := range rows {
		t.AppendStrings(r...)
	}
	return t
}

func TestLeftJoinCoalescesOverlap(t *testing.T) {
	left := table([]string{"DUID", "Region", "Output"},
		[]string{"BW01", "", "10"},
		[]string{"HPRG1", "SA1", "5"},
	)
	right := table([]string{"DUID", "Region", "Participant"},
		[]string{"BW01", "NSW1", "Origin"},
		[]string{"HPRG1", "VIC1", "Neoen"},
	)

	out, err := LeftJoin(left, right, On("DUID"))
	require.NoError(t, err)

	assert.Equal(t, []string{"DUID", "Region", "Output", "Participant"}, out.Columns)
	assert.Equal(t, "NSW1", out.Get(0, "Region").String, "null left value falls back to right")
	assert.Equal(t, "SA1", out.Get(1, "Region").String, "left value wins")
	assert.Equal(t, "Neoen", out.Get(1, "Participant").String)
}

func TestLeftJoinKeepsUnmatchedRows(t *testing.T) {
	left := table([]string{"DUID"}, []string{"NOPE"}, []string{""})
	right := table([]string{"DUID", "Region"}, []string{"BW01", "NSW1"})

	out, err := LeftJoin(left, right, On("DUID"))
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.False(t, out.Get(0, "Region").Valid)
	assert.False(t, out.Get(1, "Region").Valid)
}

func TestLeftJoinDuplicatesOnRepeatedRightKey(t *testing.T) {
	left := table([]string{"k", "v"}, []string{"1", "a"}, []string{"2", "b"})
	right := table([]string{"k", "w"}, []string{"1", "x"}, []string{"1", "y"})

	out, err := LeftJoin(left, right, On("k"))
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"x", "y", ""}, []string{
		out.Get(0, "w").String, out.Get(1, "w").String, out.Get(2, "w").String,
	})
}

func TestLeftJoinNumericKeysAndDistinctNames(t *testing.T) {
	left := table([]string{"elementnumber"}, []string{"330"})
	right := table([]string{"ELEMENTNUMBER", "EMSNAME"}, []string{" 330.0 ", "BAYSW_1"})

	out, err := LeftJoin(left, right, JoinSpec{LeftKey: "elementnumber", RightKey: "ELEMENTNUMBER"})
	require.NoError(t, err)
	assert.Equal(t, []string{"elementnumber", "ELEMENTNUMBER", "EMSNAME"}, out.Columns)
	assert.Equal(t, "BAYSW_1", out.Get(0, "EMSNAME").String)
}

func TestLeftJoinMissingKey(t *testing.T) {
	_, err := LeftJoin(table([]string{"a"}), table([]string{"DUID"}), On("DUID"))
	assert.Error(t, err)
}

func TestDUIDMappingsNonLoss(t *testing.T) {
	df := table([]string{"DUID", "Region", "Participant", "Station Name"},
		[]string{"BW01", "", "", ""},
		[]string{"GHOST", "", "", ""},
	)
	genLoads := table([]string{"DUID", "Region", "Participant", "Station Name", "Reg Cap (MW)"},
		[]string{"BW01", "NSW1", "Origin", "Bayswater", "660"},
	)
	fcas := table([]string{"DUID", "Region", "Participant", "Station Name"},
		[]string{"HPRG1", "SA1", "Neoen", "Hornsdale"},
	)

	out, err := DUIDMappings(df, genLoads, fcas)
	require.NoError(t, err)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"DUID", "Region", "Participant", "Station Name", "Reg Cap (MW)"}, out.Columns)
	assert.Equal(t, "Bayswater", out.Get(0, "Station Name").String)
	assert.Equal(t, "GHOST", out.Get(1, "DUID").String)
	assert.False(t, out.Get(1, "Region").Valid)
	assert.False(t, out.Get(1, "Reg Cap (MW)").Valid)
}

func TestCauserPaysMappings(t *testing.T) {
	b := causerpays.NewBatch("", 2)
	ts, err := causerpays.ParseTimestamp("2018/12/01 00:00:00")
	require.NoError(t, err)
	b.AppendRow(causerpays.Row{Datetime: ts, ElementNumber: 1, VariableNumber: 5, Value: 49.9})
	b.AppendRow(causerpays.Row{Datetime: ts, ElementNumber: 2, VariableNumber: 5, Value: 12})

	elements := table([]string{"ELEMENTNUMBER", "EMSNAME", "ELEMENTTYPE"},
		[]string{"1", "BAYSW_1", "GEN"},
	)
	variables := table([]string{"VARIABLENUMBER", "VARIABLETYPE"},
		[]string{"5", "GEN_MW"},
	)
	emsDUID := table([]string{"EMSNAME", "DUID"}, []string{"BAYSW_1", "BW01"})
	genLoads := table([]string{"DUID", "Station Name"}, []string{"BW01", "Bayswater"})

	out, err := CauserPaysMappings(b.Table(), elements, variables, emsDUID, genLoads)
	require.NoError(t, err)

	require.Equal(t, 2, out.Len())
	assert.False(t, out.Has("ELEMENTNUMBER"))
	assert.True(t, out.Has("VARIABLENUMBER"))
	assert.Equal(t, "Bayswater", out.Get(0, "Station Name").String)
	assert.Equal(t, "GEN_MW", out.Get(1, "VARIABLETYPE").String)
	assert.False(t, out.Get(1, "EMSNAME").Valid)
}

func TestCauserPaysMappingsWithoutDUID(t *testing.T) {
	df := table(causerpays.CanonicalColumns, []string{"2018/12/01 00:00:00", "1", "5", "1", "0"})
	elements := table([]string{"ELEMENTNUMBER", "EMSNAME"}, []string{"1", "BAYSW_1"})
	variables := table([]string{"VARIABLENUMBER", "VARIABLETYPE"}, []string{"5", "GEN_MW"})

	out, err := CauserPaysMappings(df, elements, variables, nil, nil)
	require.NoError(t, err)
	assert.True(t, out.Has("ELEMENTNUMBER", "EMSNAME", "VARIABLETYPE"))

	_, err = CauserPaysMappings(df, elements, variables, nil, table([]string{"DUID"}))
	assert.Error(t, err)
}
