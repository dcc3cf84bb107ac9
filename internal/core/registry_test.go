package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponder_PicksVendor(t *testing.T) {
	tests := map[string]string{
		"":           "OpenRouter",
		"OpenRouter": "OpenRouter",
		"anthropic":  "Anthropic",
		"gemini":     "Gemini",
		"ollama":     "Ollama",
		"dryrun":     "DryRun",
	}
	for vendor, name := range tests {
		responder, err := NewResponder(ResponderConfig{Vendor: vendor})
		require.NoError(t, err, vendor)
		assert.Equal(t, name, responder.Name(), vendor)
	}

	_, err := NewResponder(ResponderConfig{Vendor: "bard"})
	assert.Error(t, err)
}
