package predictor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"diabcare/internal/apperrors"
	"diabcare/internal/models"
)

// Status tells whether a prediction was produced.
type Status int

const (
	// Unavailable means no label could be produced; see Outcome.Err.
	Unavailable Status = iota
	// Available means Label and Confidence are set.
	Available
)

func (s Status) String() string {
	if s == Available {
		return "available"
	}
	return "unavailable"
}

// Outcome is the result of a Predict call.
type Outcome struct {
	Status     Status
	Label      int     // 0 non-diabetic, 1 diabetic
	Confidence float64 // maximum class probability, 0..100
	Err        error   // set when Status is Unavailable; wraps apperrors.ErrPredictionUnavailable
}

// Available reports whether the outcome carries a label.
func (o Outcome) Available() bool { return o.Status == Available }

// ResultText is the patient result text this outcome freezes at creation.
func (o Outcome) ResultText() string {
	if !o.Available() {
		return models.ResultPredictionError
	}
	return models.ResultText(o.Label)
}

// UnavailableOutcome builds an unavailable outcome for cause.
func UnavailableOutcome(cause error) Outcome {
	if cause == nil {
		cause = errors.New("no model loaded")
	}
	return Outcome{
		Status: Unavailable,
		Label:  -1,
		Err:    fmt.Errorf("%w: %w", apperrors.ErrPredictionUnavailable, cause),
	}
}

// Adapter is the immutable handle to the loaded classifier. It is built once
// at startup, injected where needed and safe for concurrent use.
type Adapter struct {
	artifact *Artifact
	loadErr  error
}

// New builds an adapter. When artifact is nil or loadErr is set, every
// Predict call returns an unavailable outcome.
func New(artifact *Artifact, loadErr error) *Adapter {
	if artifact == nil && loadErr == nil {
		loadErr = errors.New("no model artifact")
	}
	if loadErr != nil {
		artifact = nil
	}
	return &Adapter{artifact: artifact, loadErr: loadErr}
}

// Load reads the artifact at path and builds an adapter. A failed load is
// logged and yields a degraded adapter rather than an error.
func Load(path string, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	artifact, err := LoadArtifact(path)
	if err != nil {
		log.Error("failed to load model artifact, predictions disabled", "path", path, "error", err)
		return New(nil, err)
	}
	log.Info("model artifact loaded", "path", path, "kind", artifact.Kind, "version", artifact.Version)
	return New(artifact, nil)
}

// Available reports whether a model is loaded.
func (a *Adapter) Available() bool { return a.artifact != nil }

// LoadError returns why the model could not be loaded, if it could not.
func (a *Adapter) LoadError() error { return a.loadErr }

// Version returns the artifact version, or an empty string.
func (a *Adapter) Version() string {
	if a.artifact == nil {
		return ""
	}
	return a.artifact.Version
}

// Predict classifies one patient. The vector handed to the model is always
// glucose, blood pressure, BMI, pedigree, age. Predict never panics.
func (a *Adapter) Predict(glucose, bloodPressure, bmi, pedigree float64, age int) (out Outcome) {
	if a.artifact == nil {
		return UnavailableOutcome(a.loadErr)
	}

	defer func() {
		if r := recover(); r != nil {
			out = UnavailableOutcome(fmt.Errorf("inference panic: %v", r))
		}
	}()

	x := []float64{glucose, bloodPressure, bmi, pedigree, float64(age)}
	if !finite(x...) {
		return UnavailableOutcome(errors.New("non-finite feature value"))
	}

	probs, err := a.artifact.model.predictProba(x)
	if err != nil {
		return UnavailableOutcome(err)
	}
	if len(probs) != len(a.artifact.Classes) || !finite(probs...) {
		return UnavailableOutcome(fmt.Errorf("invalid class probabilities %v", probs))
	}

	// argmax; the first class wins ties
	best := 0
	for i, p := range probs {
		if p < 0 || p > 1 {
			return UnavailableOutcome(fmt.Errorf("class probability %g out of range", p))
		}
		if p > probs[best] {
			best = i
		}
	}

	return Outcome{
		Status:     Available,
		Label:      a.artifact.Classes[best],
		Confidence: math.Min(100, probs[best]*100),
	}
}
