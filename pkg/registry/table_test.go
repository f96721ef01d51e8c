package registry

import (
	"testing"

	"github.com/guregu/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	t := NewTable("DUID", "Region", "Participant")
	t.AppendStrings("BW01", "NSW1", "Origin")
	t.AppendStrings("BW01", "NSW1", "Origin")
	t.AppendStrings("HPRG1", "SA1", "")
	return t
}

func TestTableAppendPadsRows(t *testing.T) {
	tbl := NewTable("a", "b", "c")
	tbl.AppendStrings("1")
	tbl.AppendStrings("1", "2", "3", "4")

	require.Equal(t, 2, tbl.Len())
	assert.Len(t, tbl.Rows[0], 3)
	assert.Len(t, tbl.Rows[1], 3)
	assert.False(t, tbl.Get(0, "b").Valid)
	assert.Equal(t, "3", tbl.Get(1, "c").String)
}

func TestTableSelectAndRequire(t *testing.T) {
	tbl := sampleTable()

	out, err := tbl.Select("Participant", "DUID")
	require.NoError(t, err)
	assert.Equal(t, []string{"Participant", "DUID"}, out.Columns)
	assert.Equal(t, "Origin", out.Rows[0][0].String)
	assert.Equal(t, "BW01", out.Rows[0][1].String)

	_, err = tbl.Select("Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "Missing"`)
}

func TestTableDistinctBy(t *testing.T) {
	out, err := sampleTable().DistinctBy("DUID", "Region")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, "HPRG1", out.Get(1, "DUID").String)
}

func TestTableDistinctByDistinguishesNullFromEmpty(t *testing.T) {
	tbl := NewTable("k")
	tbl.AppendRow([]null.String{null.String{}})
	tbl.AppendRow([]null.String{null.StringFrom("")})

	out, err := tbl.DistinctBy("k")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestTableDropEmptyColumns(t *testing.T) {
	tbl := NewTable("DUID", "Unnamed: 11", "", "Empty", "Region")
	tbl.AppendStrings("A", "x", "y", "", "NSW1")
	tbl.AppendStrings("B", "", "", "", "")

	out := tbl.DropEmptyColumns()
	assert.Equal(t, []string{"DUID", "Region"}, out.Columns)
	assert.Equal(t, 2, out.Len())
}

func TestTableCloneIsDeep(t *testing.T) {
	tbl := sampleTable()
	clone := tbl.Clone()
	clone.Rows[0][0] = null.StringFrom("CHANGED")
	assert.Equal(t, "BW01", tbl.Rows[0][0].String)
}

func TestTableDropColumnsIgnoresUnknown(t *testing.T) {
	out := sampleTable().DropColumns("Region", "Nope")
	assert.Equal(t, []string{"DUID", "Participant"}, out.Columns)
}
