package inference

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(strings.NewReader(`{"distanceKm": 12.50, "trafficLevel": "High"} `))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12.50"), p["distanceKm"])
	assert.Equal(t, "High", p["trafficLevel"])
}

func TestDecodePayload_Errors(t *testing.T) {
	for _, body := range []string{"", "{", "[1,2]", `"x"`, "null", `{"a":1}{"b":2}`, `{"a":1} x`} {
		_, err := DecodePayload(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrMalformedBody, body)
	}
}
