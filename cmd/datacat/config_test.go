package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datacat.yaml")

	content := `
catalog_path: /var/lib/datacat/catalog.db
data_dir: /var/lib/datacat/data
fields:
  - dim1
  - dim2
  - date
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/datacat/catalog.db", cfg.CatalogPath)
	assert.Equal(t, "/var/lib/datacat/data", cfg.DataDir)
	assert.Equal(t, []string{"dim1", "dim2", "date"}, cfg.Fields)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: [unclosed"), 0o644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "simple pairs",
			pairs: []string{"dim1=A", "dim2=B"},
			want:  map[string]string{"dim1": "A", "dim2": "B"},
		},
		{
			name:  "value with equals sign",
			pairs: []string{"where=a=b"},
			want:  map[string]string{"where": "a=b"},
		},
		{
			name:  "empty value",
			pairs: []string{"dim1="},
			want:  map[string]string{"dim1": ""},
		},
		{
			name:  "no pairs",
			pairs: nil,
			want:  nil,
		},
		{
			name:    "missing separator",
			pairs:   []string{"dim1"},
			wantErr: true,
		},
		{
			name:    "blank key",
			pairs:   []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairs(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArrays(t *testing.T) {
	bundle, err := parseArrays([]string{"arr=1, 2,3.5"})
	require.NoError(t, err)
	require.Contains(t, bundle, "arr")
	assert.Equal(t, []float64{1, 2, 3.5}, bundle["arr"].Floats)
	assert.Equal(t, []int{3}, bundle["arr"].Shape)

	_, err = parseArrays([]string{"arr=1,x"})
	assert.Error(t, err)

	_, err = parseArrays([]string{"noequals"})
	assert.Error(t, err)
}
