package registry

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mmsElements = `C,NEMP.WORLD,ELEMENTS_FCAS_4_SECOND,AEMO,PUBLIC,2018/12/01,00:00:00
I,CAUSER_PAYS,ELEMENTS_FCAS_4_SECOND,1,ELEMENTNUMBER,EMSNAME,ELEMENTTYPE,LASTCHANGED
D,CAUSER_PAYS,ELEMENTS_FCAS_4_SECOND,1,1,BAYSW_1,GEN,"2018/01/01 00:00:00"
D,CAUSER_PAYS,ELEMENTS_FCAS_4_SECOND,1,2,HPRG1,GEN,"2018/01/01 00:00:00"
I,CAUSER_PAYS,OTHER_TABLE,1,X,Y
D,CAUSER_PAYS,OTHER_TABLE,1,9,9
C,"END OF REPORT",6
`

func TestParseCSV(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("\ufeffDUID , Region\nBW01,NSW1\nHPRG1,\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"DUID", "Region"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.False(t, tbl.Get(1, "Region").Valid)
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	tbl := sampleTable()

	require.NoError(t, WriteCSV(path, tbl))
	got, err := ReadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, tbl.Columns, got.Columns)
	assert.Equal(t, tbl.Rows, got.Rows)
}

func TestIsMMS(t *testing.T) {
	assert.True(t, IsMMS([]byte(mmsElements)))
	assert.True(t, IsMMS([]byte("\ufeffI,A,B,1,X\n")))
	assert.False(t, IsMMS([]byte("DUID,Region\n")))
}

func TestParseMMS(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{"by subtype", "ELEMENTS_FCAS_4_SECOND"},
		{"lower case", "elements_fcas_4_second"},
		{"first table", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ParseMMS(strings.NewReader(mmsElements), tt.table)
			require.NoError(t, err)
			assert.Equal(t, []string{"ELEMENTNUMBER", "EMSNAME", "ELEMENTTYPE", "LASTCHANGED"}, tbl.Columns)
			require.Equal(t, 2, tbl.Len())
			assert.Equal(t, "HPRG1", tbl.Get(1, "EMSNAME").String)
		})
	}
}

func TestParseMMSSecondTable(t *testing.T) {
	tbl, err := ParseMMS(strings.NewReader(mmsElements), "CAUSER_PAYS_OTHER_TABLE")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, tbl.Columns)
	assert.Equal(t, 1, tbl.Len())
}

func TestParseMMSMissingTable(t *testing.T) {
	_, err := ParseMMS(strings.NewReader(mmsElements), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func zipped(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodeTable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		rows int
	}{
		{"zip of mms", zipped(t, "PUBLIC_DVD_ELEMENTS_FCAS_4_SECOND.CSV", mmsElements), 2},
		{"bare mms", []byte(mmsElements), 2},
		{"plain csv", []byte("ELEMENTNUMBER,EMSNAME\n1,BAYSW_1\n"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := DecodeTable(tt.data, ElementsTable)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, tbl.Len())
			assert.True(t, tbl.Has("ELEMENTNUMBER", "EMSNAME"))
		})
	}
}

func TestDecodeTableZipWithoutCSV(t *testing.T) {
	_, err := DecodeTable(zipped(t, "readme.txt", "hi"), ElementsTable)
	require.Error(t, err)
}
