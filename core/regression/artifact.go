package regression

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/eta/core/model"
)

// ArtifactVersion is the current artifact layout.
const ArtifactVersion = 1

// ErrIncompatible marks an artifact trained on a different feature schema or
// traffic encoding than the one compiled into this binary.
var ErrIncompatible = errors.New("incompatible model artifact")

// Metadata describes how and on what an artifact was trained.
type Metadata struct {
	ID              string             `json:"id"`
	Kind            Kind               `json:"kind"`
	Features        []string           `json:"features"`
	TrafficEncoding map[string]float64 `json:"traffic_encoding"`
	TrainedAt       time.Time          `json:"trained_at"`
	Evaluation      Evaluation         `json:"evaluation"`
}

// NewMetadata stamps a fresh artifact identity with the current schema.
func NewMetadata(kind Kind) Metadata {
	return Metadata{
		ID:              uuid.NewString(),
		Kind:            kind,
		Features:        slices.Clone(model.FeatureNames[:]),
		TrafficEncoding: model.TrafficEncodingTable(),
		TrainedAt:       time.Now().UTC(),
	}
}

// CheckCompatible verifies that meta was produced for the serving schema.
func CheckCompatible(meta Metadata) error {
	if !slices.Equal(meta.Features, model.FeatureNames[:]) {
		return fmt.Errorf("%w: features %v, want %v", ErrIncompatible, meta.Features, model.FeatureNames)
	}
	if want := model.TrafficEncodingTable(); !maps.Equal(meta.TrafficEncoding, want) {
		return fmt.Errorf("%w: traffic encoding %v, want %v", ErrIncompatible, meta.TrafficEncoding, want)
	}
	return nil
}

type artifact struct {
	Version int `json:"version"`
	Metadata
	Model json.RawMessage `json:"model"`
}

// WriteArtifact encodes m and meta as JSON. meta.Kind is overwritten with the
// kind of m.
func WriteArtifact(w io.Writer, m Model, meta Metadata) error {
	if m == nil {
		return errors.New("nil model")
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	meta.Kind = m.Kind()
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(artifact{Version: ArtifactVersion, Metadata: meta, Model: body})
}

// ReadArtifact decodes and structurally validates an artifact. Schema
// compatibility is checked separately by CheckCompatible.
func ReadArtifact(r io.Reader) (Model, Metadata, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Version != ArtifactVersion {
		return nil, Metadata{}, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if len(a.Model) == 0 {
		return nil, Metadata{}, errors.New("artifact has no model body")
	}
	var (
		m   Model
		err error
	)
	switch a.Kind {
	case KindGradientBoosting:
		g := &GradientBoosting{}
		if err = json.Unmarshal(a.Model, g); err == nil {
			err = g.validate()
		}
		m = g
	case KindLinear:
		l := &Linear{}
		if err = json.Unmarshal(a.Model, l); err == nil {
			err = l.validate()
		}
		m = l
	default:
		return nil, Metadata{}, fmt.Errorf("unknown model kind %q", a.Kind)
	}
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("decode %s model: %w", a.Kind, err)
	}
	return m, a.Metadata, nil
}
