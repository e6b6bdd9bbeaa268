package model

import (
	"fmt"
	"strings"
)

// TrafficLevel is the categorical congestion label recorded in the dataset.
type TrafficLevel int

const (
	TrafficLow TrafficLevel = iota
	TrafficMedium
	TrafficHigh
)

// TrafficLevels lists the categories in ascending congestion order.
var TrafficLevels = []TrafficLevel{TrafficLow, TrafficMedium, TrafficHigh}

// TrafficEncoding is the numeric scale substituted for the traffic category.
// Training and serving both read this table; changing a value requires
// retraining every artifact.
var TrafficEncoding = map[TrafficLevel]float64{
	TrafficLow:    0.2,
	TrafficMedium: 0.5,
	TrafficHigh:   0.8,
}

// TrafficPenaltyMinutes is the delay the synthetic fleet data adds per category.
var TrafficPenaltyMinutes = map[TrafficLevel]float64{
	TrafficLow:    0,
	TrafficMedium: 10,
	TrafficHigh:   20,
}

func (t TrafficLevel) String() string {
	switch t {
	case TrafficLow:
		return "Low"
	case TrafficMedium:
		return "Medium"
	case TrafficHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Encode returns the numeric value used as model input.
func (t TrafficLevel) Encode() (float64, error) {
	v, ok := TrafficEncoding[t]
	if !ok {
		return 0, fmt.Errorf("unknown traffic level %d", int(t))
	}
	return v, nil
}

// ParseTrafficLevel maps a category label (case-insensitive) to a TrafficLevel.
func ParseTrafficLevel(s string) (TrafficLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TrafficLow, nil
	case "medium":
		return TrafficMedium, nil
	case "high":
		return TrafficHigh, nil
	default:
		return 0, fmt.Errorf("unknown traffic level %q", s)
	}
}

// TrafficEncodingTable returns the encoding keyed by category label, the form
// stamped into model artifacts.
func TrafficEncodingTable() map[string]float64 {
	out := make(map[string]float64, len(TrafficEncoding))
	for lvl, v := range TrafficEncoding {
		out[lvl.String()] = v
	}
	return out
}
