// Package classifier wraps the learned spam model. The model is a versioned
// weights file that can be swapped without code changes; any load or
// inference failure degrades to a neutral low-confidence prediction that the
// fusion engine down-weights automatically.
package classifier

import (
	"log/slog"
	"math"
	"sync"

	"github.com/opencomm/shrike/internal/domain"
)

// Degraded prediction returned when no usable model is loaded. Neutral
// probability with low confidence so fusion treats it as a weak signal.
var degradedPrediction = domain.ClassifierPrediction{
	SpamProbability: 0.5,
	CategoryIndex:   0,
	ModelConfidence: 0.3,
}

// Classifier runs inference over feature vectors. Safe for concurrent use;
// Reload swaps the model atomically under the lock.
type Classifier struct {
	mu    sync.RWMutex
	model *Model
	path  string
}

// New creates a classifier from a model file. A missing or malformed model
// is logged and leaves the classifier in degraded mode rather than failing:
// a screening engine without ML still screens.
func New(modelPath string) *Classifier {
	c := &Classifier{path: modelPath}

	if modelPath == "" {
		slog.Warn("no classifier model configured, running degraded")
		return c
	}

	if err := c.Reload(); err != nil {
		slog.Warn("classifier model load failed, running degraded",
			"path", modelPath,
			"error", err,
		)
	}
	return c
}

// Reload re-reads the model file and swaps it in. Used at startup and by the
// retraining worker after it writes new weights.
func (c *Classifier) Reload() error {
	model, err := LoadModel(c.path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.model = model
	c.mu.Unlock()

	slog.Info("classifier model loaded",
		"path", c.path,
		"version", model.Version,
	)
	return nil
}

// ModelVersion returns the loaded model version, or "" when degraded.
func (c *Classifier) ModelVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.model == nil {
		return ""
	}
	return c.model.Version
}

// Predict scores one feature vector. Never returns an error: a missing model
// yields the degraded prediction.
func (c *Classifier) Predict(features domain.FeatureVector) domain.ClassifierPrediction {
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	if model == nil {
		return degradedPrediction
	}

	p := sigmoid(dot(model.Weights, features) + model.Bias)

	category := 0
	if len(model.CategoryHeads) > 0 && p > 0.5 {
		best := math.Inf(-1)
		for i, head := range model.CategoryHeads {
			score := dot(head, features)
			if score > best {
				best = score
				category = i + 1
			}
		}
	}

	// Confidence grows with distance from the decision boundary, scaled by
	// the model's stored calibration factor.
	confidence := clamp01(2 * math.Abs(p-0.5) * model.Calibration)

	return domain.ClassifierPrediction{
		SpamProbability: p,
		CategoryIndex:   category,
		ModelConfidence: confidence,
	}
}

func dot(weights []float64, features domain.FeatureVector) float64 {
	var sum float64
	n := len(weights)
	if n > len(features) {
		n = len(features)
	}
	for i := 0; i < n; i++ {
		sum += weights[i] * features[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
