package registry

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// Output and source names shared by the fetch and merge steps.
const (
	GeneratorsAndLoadsCSV      = "generators_and_loads.csv"
	AncillaryServiceCSV        = "ancillary_service_providers.csv"
	UniqueFCASProvidersCSV     = "unique_fcas_providers.csv"
	ElementsMappingCSV         = "elements_causpays_mapping.csv"
	VariablesMappingCSV        = "variables_causpays_mapping.csv"
	RegistrationWorkbook       = "NEM Registration and Exemption List.xlsx"
	GeneratorsAndLoadsSheet    = "Generators and Scheduled Loads"
	AncillaryServicesSheet     = "Ancillary Services"
	ElementsTable              = "ELEMENTS_FCAS_4_SECOND"
	VariablesTable             = "VARIABLES_FCAS_4_SECOND"
	DefaultRegistrationURL     = "https://www.aemo.com.au/-/media/Files/Electricity/NEM/Participant_Information/NEM-Registration-and-Exemption-List.xlsx"
	DefaultStaticTableTemplate = "https://nemweb.com.au/Data_Archive/Wholesale_Electricity/MMSDM/{{.Year}}/MMSDM_{{.Year}}_{{.Month}}/MMSDM_Historical_Data_SQLLoader/DATA/PUBLIC_DVD_{{.Table}}_{{.Year}}{{.Month}}010000.zip"
)

// Window is the date range a fetch is made for. Registry tables do not vary
// by date, but the archive layout still needs one.
type Window struct {
	Start time.Time
	End   time.Time
}

// DummyWindow is the fixed reference window used for static tables.
var DummyWindow = Window{
	Start: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2018, 12, 31, 23, 59, 59, 0, time.UTC),
}

// Fetcher supplies registry data from the market operator.
type Fetcher interface {
	// RegistrationList downloads the registration workbook into rawDir and
	// returns its path.
	RegistrationList(ctx context.Context, rawDir string) (string, error)
	// StaticTable downloads and decodes a static MMS table.
	StaticTable(ctx context.Context, name string, window Window, rawDir string) (*Table, error)
}

// NEMWebConfig configures NEMWebFetcher.
type NEMWebConfig struct {
	RegistrationURL     string        `mapstructure:"registration_url" yaml:"registration_url"`
	StaticTableTemplate string        `mapstructure:"static_table_template" yaml:"static_table_template"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent           string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// NEMWebFetcher fetches registry data over HTTP from AEMO and NEMweb.
type NEMWebFetcher struct {
	config   NEMWebConfig
	client   *http.Client
	template *template.Template
	logger   *slog.Logger
}

// NewNEMWebFetcher validates the configuration and builds a fetcher.
func NewNEMWebFetcher(cfg NEMWebConfig, logger *slog.Logger) (*NEMWebFetcher, error) {
	if cfg.RegistrationURL == "" {
		cfg.RegistrationURL = DefaultRegistrationURL
	}
	if cfg.StaticTableTemplate == "" {
		cfg.StaticTableTemplate = DefaultStaticTableTemplate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "fcasctl"
	}
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.New("static_table").Option("missingkey=error").Parse(cfg.StaticTableTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing static_table_template: %w", err)
	}

	return &NEMWebFetcher{
		config:   cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		template: tmpl,
		logger:   logger.With("component", "NEMWebFetcher"),
	}, nil
}

// RegistrationList implements Fetcher.
func (f *NEMWebFetcher) RegistrationList(ctx context.Context, rawDir string) (string, error) {
	data, err := f.download(ctx, f.config.RegistrationURL)
	if err != nil {
		return "", fmt.Errorf("downloading registration list: %w", err)
	}
	path := filepath.Join(rawDir, RegistrationWorkbook)
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return "", fmt.Errorf("creating raw directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("saving registration list: %w", err)
	}
	f.logger.Info("saved registration list", "path", path, "bytes", len(data))
	return path, nil
}

// StaticTable implements Fetcher. The raw payload is staged in rawDir/tmp,
// which is removed once the table is decoded.
func (f *NEMWebFetcher) StaticTable(ctx context.Context, name string, window Window, rawDir string) (*Table, error) {
	url, err := f.StaticTableURL(name, window)
	if err != nil {
		return nil, err
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", name, err)
	}

	tmpDir := filepath.Join(rawDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	staged := filepath.Join(tmpDir, filepath.Base(url))
	if err := os.WriteFile(staged, data, 0644); err != nil {
		return nil, fmt.Errorf("staging %s: %w", name, err)
	}

	t, err := DecodeTable(data, name)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	f.logger.Info("fetched static table", "table", name, "rows", t.Len(), "url", url)
	return t, nil
}

// StaticTableURL renders the archive URL of a table for a window. The
// archive month is taken from the end of the window.
func (f *NEMWebFetcher) StaticTableURL(name string, window Window) (string, error) {
	var buf bytes.Buffer
	err := f.template.Execute(&buf, struct {
		Table string
		Year  string
		Month string
	}{
		Table: strings.ToUpper(name),
		Year:  window.End.Format("2006"),
		Month: window.End.Format("01"),
	})
	if err != nil {
		return "", fmt.Errorf("rendering url for %s: %w", name, err)
	}
	return buf.String(), nil
}

func (f *NEMWebFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	f.logger.Debug("downloading", "url", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// DecodeTable decodes a downloaded payload: a zip archive (its first CSV
// member is used), an MMS formatted CSV, or a plain CSV with a header row.
func DecodeTable(data []byte, table string) (*Table, error) {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening zip: %w", err)
		}
		for _, member := range zr.File {
			if !strings.EqualFold(filepath.Ext(member.Name), ".csv") {
				continue
			}
			rc, err := member.Open()
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", member.Name, err)
			}
			inner, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", member.Name, err)
			}
			return DecodeTable(inner, table)
		}
		return nil, fmt.Errorf("zip archive has no csv member")
	}

	if IsMMS(data) {
		return ParseMMS(bytes.NewReader(data), table)
	}
	return ParseCSV(bytes.NewReader(data))
}
