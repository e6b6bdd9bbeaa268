package model

// Feature keys as they appear in prediction requests.
const (
	FeatureDistanceKm   = "distanceKm"
	FeatureAvgSpeed     = "avgSpeed"
	FeatureTrafficLevel = "trafficLevel"
	FeatureBatteryLevel = "batteryLevel"
	FeatureFuelLevel    = "fuelLevel"
)

// NumFeatures is the length of a feature vector.
const NumFeatures = 5

// FeatureNames is the order in which the regression model was trained.
// Every vector handed to a model must follow it; a permuted vector yields a
// wrong ETA rather than an error.
var FeatureNames = [NumFeatures]string{
	FeatureDistanceKm,
	FeatureAvgSpeed,
	FeatureTrafficLevel,
	FeatureBatteryLevel,
	FeatureFuelLevel,
}

// DatasetColumns maps FeatureNames position by position to the column names
// of the training dataset.
var DatasetColumns = [NumFeatures]string{
	"distance_km",
	"avg_speed",
	"traffic_level",
	"battery_level",
	"fuel_level",
}

// LabelColumn is the dataset column holding the observed trip duration.
const LabelColumn = "historical_eta_minutes"

// Vector is a feature vector in FeatureNames order.
type Vector [NumFeatures]float64

// Slice returns a copy of the vector as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// TripFeatures holds the validated inputs of one ETA prediction.
type TripFeatures struct {
	DistanceKm   float64 `json:"distanceKm"`
	AvgSpeed     float64 `json:"avgSpeed"`
	TrafficLevel float64 `json:"trafficLevel"`
	BatteryLevel float64 `json:"batteryLevel"`
	FuelLevel    float64 `json:"fuelLevel"`
}

// Vector lays the features out in FeatureNames order.
func (t TripFeatures) Vector() Vector {
	return Vector{t.DistanceKm, t.AvgSpeed, t.TrafficLevel, t.BatteryLevel, t.FuelLevel}
}

// FeaturesFromVector is the inverse of TripFeatures.Vector.
func FeaturesFromVector(v Vector) TripFeatures {
	return TripFeatures{
		DistanceKm:   v[0],
		AvgSpeed:     v[1],
		TrafficLevel: v[2],
		BatteryLevel: v[3],
		FuelLevel:    v[4],
	}
}

// Payload returns the request representation of the features, keyed by
// feature name.
func (t TripFeatures) Payload() map[string]any {
	v := t.Vector()
	out := make(map[string]any, NumFeatures)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}
