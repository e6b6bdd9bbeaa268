// Package features turns untyped request payloads into feature vectors laid
// out in the order the regression model was trained on.
package features

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kilianp07/eta/core/model"
)

// bounds is the accepted domain of a feature, inclusive on both ends.
type bounds struct {
	min, max float64
}

func (b bounds) contains(x float64) bool { return x >= b.min && x <= b.max }

func (b bounds) String() string {
	if math.IsInf(b.max, 1) {
		return fmt.Sprintf("must be >= %g", b.min)
	}
	return fmt.Sprintf("must be within [%g, %g]", b.min, b.max)
}

var domains = map[string]bounds{
	model.FeatureDistanceKm:   {0, math.Inf(1)},
	model.FeatureAvgSpeed:     {0, math.Inf(1)},
	model.FeatureTrafficLevel: {0, 1},
	model.FeatureBatteryLevel: {0, 100},
	model.FeatureFuelLevel:    {0, 100},
}

const (
	reasonMissing   = "missing"
	reasonNull      = "null"
	reasonNotNumber = "not a number"
	reasonNotFinite = "not finite"
	reasonTraffic   = "unknown traffic category"
)

// BuildVector validates payload and returns its feature vector. On failure
// the error is a *FieldError and no vector is produced.
func BuildVector(payload map[string]any) (model.Vector, error) {
	f, err := Parse(payload)
	if err != nil {
		return model.Vector{}, err
	}
	return f.Vector(), nil
}

// Parse validates payload and returns the typed features. Keys outside the
// feature schema are ignored.
func Parse(payload map[string]any) (model.TripFeatures, error) {
	var (
		v      model.Vector
		issues []Issue
	)
	for i, name := range model.FeatureNames {
		raw, ok := payload[name]
		if !ok {
			issues = append(issues, Issue{Field: name, Reason: reasonMissing})
			continue
		}
		x, reason := coerce(name, raw)
		if reason != "" {
			issues = append(issues, Issue{Field: name, Reason: reason})
			continue
		}
		v[i] = x
	}
	if len(issues) > 0 {
		return model.TripFeatures{}, &FieldError{Issues: issues}
	}
	return model.FeaturesFromVector(v), nil
}

// coerce converts raw into a float and checks it against the feature domain.
// A non-empty reason signals rejection.
func coerce(name string, raw any) (float64, string) {
	var x float64
	switch val := raw.(type) {
	case nil:
		return 0, reasonNull
	case float64:
		x = val
	case float32:
		x = float64(val)
	case int:
		x = float64(val)
	case int8:
		x = float64(val)
	case int16:
		x = float64(val)
	case int32:
		x = float64(val)
	case int64:
		x = float64(val)
	case uint:
		x = float64(val)
	case uint8:
		x = float64(val)
	case uint16:
		x = float64(val)
	case uint32:
		x = float64(val)
	case uint64:
		x = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, reasonNotNumber
		}
		x = f
	case string:
		if name != model.FeatureTrafficLevel {
			return 0, reasonNotNumber
		}
		lvl, err := model.ParseTrafficLevel(val)
		if err != nil {
			return 0, reasonTraffic
		}
		enc, err := lvl.Encode()
		if err != nil {
			return 0, reasonTraffic
		}
		return enc, ""
	default:
		return 0, reasonNotNumber
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, reasonNotFinite
	}
	if d, ok := domains[name]; ok && !d.contains(x) {
		return 0, d.String()
	}
	return x, ""
}
