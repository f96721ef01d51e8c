package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/causer-pays-workflow/internal/cli/config"
)

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "legacy compaction flags",
			in:   []string{"compact", "-path", "/data", "-format", "csv", "-memory_limit", "1024"},
			want: []string{"compact", "--path", "/data", "--format", "csv", "--memory-limit", "1024"},
		},
		{
			name: "legacy with value",
			in:   []string{"fetch", "participants", "-raw_path=/raw", "-proc_path=/proc"},
			want: []string{"fetch", "participants", "--raw-path=/raw", "--proc-path=/proc"},
		},
		{
			name: "modern flags untouched",
			in:   []string{"compact", "--path", "/data", "-v", "--legacy"},
			want: []string{"compact", "--path", "/data", "-v", "--legacy"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeArgs(tt.in))
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggingConfig{Format: "json"})
	logger.Debug("hidden")
	logger.Info("compaction complete", "chunks", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "compaction complete", entry["msg"])
	assert.Equal(t, float64(3), entry["chunks"])
}

func TestNewLoggerVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggingConfig{Format: "text", Verbose: true})
	logger.Debug("state change", "to", "flushing")
	assert.Contains(t, buf.String(), "to=flushing")
}

func TestWriteDefaultConfigLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "fcasctl.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}
