package predictor

import (
	"errors"
	"fmt"
	"math"
)

// LogisticModel is a binary logistic regression, optionally preceded by a
// standard scaler.
type LogisticModel struct {
	Coefficients []float64 `yaml:"coefficients"`
	Intercept    float64   `yaml:"intercept"`
	Scaler       *Scaler   `yaml:"scaler,omitempty"`
}

// Scaler standardizes each feature as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

func (m *LogisticModel) validate(n int) error {
	if len(m.Coefficients) != n {
		return fmt.Errorf("logistic model has %d coefficients, want %d", len(m.Coefficients), n)
	}
	if !finite(m.Coefficients...) || !finite(m.Intercept) {
		return errors.New("logistic model has non-finite parameters")
	}
	if m.Scaler == nil {
		return nil
	}
	if len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
		return fmt.Errorf("scaler must have %d means and scales", n)
	}
	for i, s := range m.Scaler.Scale {
		if s == 0 || !finite(s, m.Scaler.Mean[i]) {
			return fmt.Errorf("scaler entry %d is not usable", i)
		}
	}
	return nil
}

func (m *LogisticModel) predictProba(x []float64) ([]float64, error) {
	if len(x) != len(m.Coefficients) {
		return nil, fmt.Errorf("got %d features, want %d", len(x), len(m.Coefficients))
	}
	z := m.Intercept
	for i, v := range x {
		if m.Scaler != nil {
			v = (v - m.Scaler.Mean[i]) / m.Scaler.Scale[i]
		}
		z += m.Coefficients[i] * v
	}
	p := 1 / (1 + math.Exp(-z))
	return []float64{1 - p, p}, nil
}
