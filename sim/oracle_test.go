package sim

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/ecotype/ecosim/binning"
)

func testConfig() *Config {
	cfg := NewConfig(20, 1000, 42)
	cfg.Nrep = 500
	cfg.Criterion = 2
	return cfg
}

func TestWriteRequest(t *testing.T) {
	cfg := testConfig()
	bins := binning.Binning{{Crit: 0.98, Level: 4}, {Crit: 0.9, Level: 9}}
	p := ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7}

	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, cfg, bins, p, 12345))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 11)
	// Values are positional whitespace-separated tokens.
	first := func(line string) string { return strings.Fields(line)[0] }
	assert.Equal(t, "2", first(lines[0]))
	assert.Equal(t, "0.980000", first(lines[1]))
	assert.Equal(t, "4", strings.Fields(lines[1])[1])
	assert.Equal(t, "0.02000", first(lines[3]))
	assert.Equal(t, "1.50000", first(lines[4]))
	assert.Equal(t, "7", first(lines[5]))
	assert.Equal(t, "20", first(lines[6]))
	assert.Equal(t, "500", first(lines[7]))
}

func TestWriteRequestTail(t *testing.T) {
	cfg := testConfig()
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, cfg, nil, ParameterSet{}, 99999))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "99999", strings.Fields(lines[6])[0])
	assert.Equal(t, "1000", strings.Fields(lines[7])[0])
	assert.Equal(t, "2", strings.Fields(lines[8])[0])
}

func TestReadResponse(t *testing.T) {
	p, err := ReadResponse(strings.NewReader("0.02    1.5    7    0.85\n"))
	require.NoError(t, err)
	assert.Equal(t, ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7, Likelihood: 0.85}, p)
	assert.True(t, p.Usable())

	// Several lines: the last one wins.
	p, err = ReadResponse(strings.NewReader("1 1 1 0.1\n0.5 2 3 0.4\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Npop)

	// Non-positive npop or likelihood is not an error, just unusable.
	p, err = ReadResponse(strings.NewReader("0.02 1.5 0 0.85\n"))
	require.NoError(t, err)
	assert.False(t, p.Usable())

	_, err = ReadResponse(strings.NewReader(""))
	assert.Error(t, err)
	_, err = ReadResponse(strings.NewReader("0.02 1.5 7\n"))
	assert.Error(t, err)
	_, err = ReadResponse(strings.NewReader("0.02 x 7 0.85\n"))
	assert.Error(t, err)
}

func TestNextSeed(t *testing.T) {
	cfg := testConfig()
	for i := 0; i < 100; i++ {
		seed := cfg.NextSeed()
		assert.Equal(t, int64(1), seed%2, "seed must be odd")
		assert.Less(t, len(strconv.FormatInt(seed, 10)), 10)
	}
}
