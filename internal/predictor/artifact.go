// Package predictor wraps the pre-trained diabetes classifier behind a single
// Predict call and isolates the rest of the service from the artifact format.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Supported artifact kinds.
const (
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
)

// FeatureOrder is the column order the model was trained on. Vectors passed
// to the model are always assembled in this order.
var FeatureOrder = []string{"glucose", "blood_pressure", "bmi", "pedigree", "age"}

// Artifact is a trained classifier exported to YAML (or JSON, which is valid
// YAML). It is immutable once loaded.
type Artifact struct {
	Kind     string         `yaml:"kind"`
	Version  string         `yaml:"version"`
	Features []string       `yaml:"features"`
	Classes  []int          `yaml:"classes"`
	Logistic *LogisticModel `yaml:"logistic,omitempty"`
	Forest   *ForestModel   `yaml:"forest,omitempty"`

	model classifier
}

// classifier returns one probability per class for a feature vector in
// FeatureOrder.
type classifier interface {
	predictProba(x []float64) ([]float64, error)
}

// LoadArtifact reads and validates a model artifact from path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes and validates an artifact document.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := a.init(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) init() error {
	if !slices.Equal(a.Features, FeatureOrder) {
		return fmt.Errorf("model features %v do not match required order %v", a.Features, FeatureOrder)
	}
	if len(a.Classes) == 0 {
		a.Classes = []int{0, 1}
	}
	if !slices.Equal(a.Classes, []int{0, 1}) {
		return fmt.Errorf("model classes must be [0 1], got %v", a.Classes)
	}

	switch a.Kind {
	case KindLogisticRegression:
		if a.Logistic == nil {
			return errors.New("logistic_regression artifact has no logistic section")
		}
		if err := a.Logistic.validate(len(a.Features)); err != nil {
			return err
		}
		a.model = a.Logistic
	case KindRandomForest:
		if a.Forest == nil {
			return errors.New("random_forest artifact has no forest section")
		}
		if err := a.Forest.validate(len(a.Features), len(a.Classes)); err != nil {
			return err
		}
		a.model = a.Forest
	default:
		return fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
