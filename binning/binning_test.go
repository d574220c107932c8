package binning

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSortsDescending(t *testing.T) {
	in := "0.90 9\n# comment\n1.000000 1\n0.98 4\n\n0.95 4\n"
	bins, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bins, 4)
	assert.Equal(t, BinLevel{Crit: 1.0, Level: 1}, bins[0])
	assert.Equal(t, BinLevel{Crit: 0.90, Level: 9}, bins[3])
}

func TestReadErrors(t *testing.T) {
	for _, in := range []string{"0.9\n", "0.9 x\n", "y 3\n", "0.9 3 4\n"} {
		_, err := Read(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	bins := Binning{{1.0, 1}, {0.98, 4}, {0.90, 9}}
	var buf bytes.Buffer
	require.NoError(t, bins.Write(&buf))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, bins, got)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Binning{{1.0, 1}, {0.9, 3}}.Validate())
	assert.Error(t, Binning{}.Validate())
	assert.Error(t, Binning{{1.2, 1}}.Validate())
	assert.Error(t, Binning{{0.9, 0}}.Validate())
}
