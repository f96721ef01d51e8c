package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, handler http.Handler) *NEMWebFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f, err := NewNEMWebFetcher(NEMWebConfig{
		RegistrationURL:     srv.URL + "/registration.xlsx",
		StaticTableTemplate: srv.URL + "/{{.Year}}/{{.Month}}/{{.Table}}.zip",
	}, nil)
	require.NoError(t, err)
	return f
}

func TestStaticTableURL(t *testing.T) {
	f, err := NewNEMWebFetcher(NEMWebConfig{}, nil)
	require.NoError(t, err)

	url, err := f.StaticTableURL("elements_fcas_4_second", DummyWindow)
	require.NoError(t, err)
	assert.Equal(t, "https://nemweb.com.au/Data_Archive/Wholesale_Electricity/MMSDM/2018/MMSDM_2018_12/MMSDM_Historical_Data_SQLLoader/DATA/PUBLIC_DVD_ELEMENTS_FCAS_4_SECOND_201812010000.zip", url)
}

func TestNewNEMWebFetcherBadTemplate(t *testing.T) {
	_, err := NewNEMWebFetcher(NEMWebConfig{StaticTableTemplate: "{{.Table"}, nil)
	require.Error(t, err)
}

func TestStaticTableStagesAndCleansUp(t *testing.T) {
	payload := zipped(t, "PUBLIC_DVD_ELEMENTS_FCAS_4_SECOND.CSV", mmsElements)
	var gotPath string
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write(payload)
	}))

	rawDir := t.TempDir()
	tbl, err := f.StaticTable(context.Background(), ElementsTable, DummyWindow, rawDir)
	require.NoError(t, err)

	assert.Equal(t, "/2018/12/ELEMENTS_FCAS_4_SECOND.zip", gotPath)
	assert.Equal(t, 2, tbl.Len())

	_, err = os.Stat(filepath.Join(rawDir, "tmp"))
	assert.True(t, os.IsNotExist(err), "staging directory should be removed")
}

func TestStaticTableHTTPError(t *testing.T) {
	f := newTestFetcher(t, http.NotFoundHandler())

	_, err := f.StaticTable(context.Background(), VariablesTable, DummyWindow, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRegistrationList(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.xlsx")
	gl := NewTable(ColDUID)
	gl.AppendStrings("BW01")
	writeWorkbook(t, src, map[string]*Table{GeneratorsAndLoadsSheet: gl}, GeneratorsAndLoadsSheet)
	body, err := os.ReadFile(src)
	require.NoError(t, err)

	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))

	rawDir := filepath.Join(t.TempDir(), "raw")
	path, err := f.RegistrationList(context.Background(), rawDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rawDir, RegistrationWorkbook), path)

	got, err := ReadSheet(path, GeneratorsAndLoadsSheet)
	require.NoError(t, err)
	assert.Equal(t, "BW01", got.Get(0, ColDUID).String)
}
