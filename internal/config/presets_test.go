package config

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/dsp/eq"
)

func posInf() float64 { return math.Inf(1) }

func TestReadPresets(t *testing.T) {
	path := writeFile(t, "presets.yaml", `
presets:
  - name: Car
    gains: [4, 3, 1, 0, 0, 0, 1, 2, 2, 1]
  - name: Night
    gains: [-2, -2, -1, 0, 0, 0, 0, -1, -2, -3]
`)

	presets, err := ReadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "Car", presets[0].Name)
	assert.Equal(t, []float64{-2, -2, -1, 0, 0, 0, 0, -1, -2, -3}, presets[1].Gains)
}

func TestReadPresetsRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key": "presets:\n  - name: A\n    gain: [1]\n",
		"empty name":  "presets:\n  - name: \"\"\n    gains: [1]\n",
		"not yaml":    "presets: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPresets(writeFile(t, "p.yaml", content))
			require.Error(t, err)
		})
	}

	_, err := ReadPresets(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	want := []eq.Preset{{Name: "Mine", Gains: []float64{1.5, -2, 0}}}

	require.NoError(t, WritePresets(path, want))
	got, err := ReadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPresets(t *testing.T) {
	first := writeFile(t, "a.yaml", "presets:\n  - name: Car\n    gains: [1]\n")
	second := writeFile(t, "b.yaml", "presets:\n  - name: car\n    gains: [2]\n  - name: Hall\n    gains: [3]\n")

	c := bridge.NewCatalog()
	n, err := LoadPresets(c, first, second)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	p, err := c.Lookup("CAR")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, p.Gains)

	builtin := writeFile(t, "c.yaml", "presets:\n  - name: Flat\n    gains: [0]\n")
	_, err = LoadPresets(c, builtin)
	require.ErrorIs(t, err, bridge.ErrBuiltinPreset)
}
