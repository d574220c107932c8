package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 10000, c.Nrep)
	assert.Equal(t, 3, c.Criterion)
	assert.Equal(t, 0.95, c.CI.Confidence)
}

func TestReadConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ecosim.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
nrep: 500
workers: 4
scan:
  min: 0.01
  max: 10
  steps: 5
simplex:
  maxEvaluations: 200
`), 0644))

	c, err := ReadConfig(fn)
	require.NoError(t, err)
	assert.Equal(t, 500, c.Nrep)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, GridConfig{Min: 0.01, Max: 10, Steps: 5}, c.Scan)
	assert.Equal(t, 200, c.Simplex.MaxEvaluations)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, c.Criterion)
	assert.Equal(t, 0.95, c.CI.Confidence)
}

func TestReadConfigInvalid(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ecosim.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("scan:\n  min: -1\n"), 0644))
	_, err := ReadConfig(fn)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(fn, []byte("ci:\n  confidence: 1.5\n"), 0644))
	_, err = ReadConfig(fn)
	assert.Error(t, err)
}

func TestReadConfigMissing(t *testing.T) {
	c, err := ReadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)

	_, err = ReadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
