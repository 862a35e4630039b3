package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencomm/shrike/internal/domain"
)

func writeModel(t *testing.T, m *Model) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal model: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write model: %v", err)
	}
	return path
}

func testModel() *Model {
	weights := make([]float64, domain.FeatureVectorSize)
	// Heavy positive weight on the repeated-digit-run slot.
	weights[2] = 8.0
	return &Model{
		Version:     "test-1",
		Weights:     weights,
		Bias:        -2.0,
		Calibration: 1.0,
	}
}

func TestPredictDegradedWithoutModel(t *testing.T) {
	c := New("")

	got := c.Predict(domain.FeatureVector{})
	if got != degradedPrediction {
		t.Errorf("expected degraded prediction, got %+v", got)
	}
}

func TestPredictDegradedOnMissingFile(t *testing.T) {
	c := New("/nonexistent/model.json")

	got := c.Predict(domain.FeatureVector{})
	if got.SpamProbability != 0.5 || got.ModelConfidence != 0.3 {
		t.Errorf("expected neutral degraded prediction, got %+v", got)
	}
}

func TestPredictWithModel(t *testing.T) {
	path := writeModel(t, testModel())
	c := New(path)

	if c.ModelVersion() != "test-1" {
		t.Fatalf("expected model version test-1, got %q", c.ModelVersion())
	}

	var suspicious domain.FeatureVector
	suspicious[2] = 1.0 // max repeated-digit run

	var clean domain.FeatureVector

	pSpam := c.Predict(suspicious)
	pClean := c.Predict(clean)

	if pSpam.SpamProbability <= pClean.SpamProbability {
		t.Errorf("expected suspicious vector to score higher: %v vs %v",
			pSpam.SpamProbability, pClean.SpamProbability)
	}
	if pSpam.SpamProbability < 0 || pSpam.SpamProbability > 1 {
		t.Errorf("probability out of range: %v", pSpam.SpamProbability)
	}
}

func TestPredictCategoryHeads(t *testing.T) {
	m := testModel()
	telemarketing := make([]float64, domain.FeatureVectorSize)
	telemarketing[6] = 1.0 // toll-free flag
	scam := make([]float64, domain.FeatureVectorSize)
	scam[2] = 1.0 // repeated digits
	m.CategoryHeads = [][]float64{telemarketing, scam}

	c := New(writeModel(t, m))

	var v domain.FeatureVector
	v[2] = 1.0
	pred := c.Predict(v)

	if pred.SpamProbability <= 0.5 {
		t.Fatalf("expected spam probability > 0.5, got %v", pred.SpamProbability)
	}
	if pred.CategoryIndex != 2 {
		t.Errorf("expected scam category index 2, got %d", pred.CategoryIndex)
	}
}

func TestLoadModelRejectsWrongShape(t *testing.T) {
	m := testModel()
	m.Weights = []float64{1, 2, 3}

	if _, err := LoadModel(writeModel(t, m)); err == nil {
		t.Error("expected error for wrong weight count")
	}
}

func TestReloadSwapsModel(t *testing.T) {
	path := writeModel(t, testModel())
	c := New(path)

	next := testModel()
	next.Version = "test-2"
	data, _ := json.Marshal(next)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to rewrite model: %v", err)
	}

	if err := c.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if c.ModelVersion() != "test-2" {
		t.Errorf("expected version test-2 after reload, got %q", c.ModelVersion())
	}
}
