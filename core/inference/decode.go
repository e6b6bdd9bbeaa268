package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedBody marks a request body that is not a single JSON object.
var ErrMalformedBody = errors.New("malformed JSON body")

// DecodePayload reads one JSON object from r. Numbers are kept as
// json.Number so the feature builder sees them exactly as sent.
func DecodePayload(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedBody)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedBody)
	}
	return obj, nil
}
