package catalog

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/pkg/unit"
)

func TestCapabilitiesCoverEveryUnit(t *testing.T) {
	entries, err := fs.ReadDir(Capabilities(), ".")
	require.NoError(t, err)
	require.Len(t, entries, 22)

	names := make(map[string]bool)
	for _, e := range entries {
		raw, err := fs.ReadFile(Capabilities(), e.Name())
		require.NoError(t, err)

		var card struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
			FailureModes []string `json:"failure_modes"`
		}
		require.NoError(t, json.Unmarshal(raw, &card), e.Name())
		names[card.Metadata.Name] = true

		d, ok := unit.Lookup(card.Metadata.Name)
		require.True(t, ok, "card %s has no unit descriptor", e.Name())
		assert.Equal(t, d.FailureCodes(), card.FailureModes, e.Name())
	}
	for _, n := range unit.Names() {
		assert.True(t, names[n], "missing card for %s", n)
	}
}

func TestSignalsByType(t *testing.T) {
	entries, err := fs.ReadDir(Signals(), ".")
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, e := range entries {
		raw, err := fs.ReadFile(Signals(), e.Name())
		require.NoError(t, err)
		var sig struct {
			SignalType string `json:"signal_type"`
		}
		require.NoError(t, json.Unmarshal(raw, &sig), e.Name())
		counts[sig.SignalType]++
	}
	assert.Equal(t, map[string]int{"metric": 4, "outcome": 3, "advisor": 3}, counts)
}
