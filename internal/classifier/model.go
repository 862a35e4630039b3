package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opencomm/shrike/internal/domain"
)

// Model is the on-disk classifier format: a logistic regression head for
// spam probability plus optional linear heads for category resolution
// (head 0 → category index 1, etc.).
type Model struct {
	Version       string      `json:"version"`
	Weights       []float64   `json:"weights"`
	Bias          float64     `json:"bias"`
	Calibration   float64     `json:"calibration"`
	CategoryHeads [][]float64 `json:"categoryHeads,omitempty"`
}

// LoadModel reads and validates a model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.Version == "" {
		return fmt.Errorf("model version is required")
	}
	if len(m.Weights) != domain.FeatureVectorSize {
		return fmt.Errorf("model expects %d weights, got %d", domain.FeatureVectorSize, len(m.Weights))
	}
	for i, head := range m.CategoryHeads {
		if len(head) != domain.FeatureVectorSize {
			return fmt.Errorf("category head %d expects %d weights, got %d", i, domain.FeatureVectorSize, len(head))
		}
	}
	if m.Calibration <= 0 {
		m.Calibration = 1.0
	}
	return nil
}
