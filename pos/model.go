package pos

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model is the opaque prediction function: a feature vector in, one
// probability-like score per class index out. Training and serialization
// live outside this package; a Model only promises deterministic scoring.
type Model interface {
	Predict(vector []float64) ([]float64, error)
}

// CentroidModel is a nearest-centroid fingerprint model: one mean RSSI
// vector per class, scores derived from inverse Euclidean distance and
// normalized to sum to 1.
type CentroidModel struct {
	Classes   []string    `json:"classes"`
	Centroids [][]float64 `json:"centroids"`
}

// LoadCentroidModel reads a centroid model artifact from a JSON file and
// validates its shape.
func LoadCentroidModel(path string) (*CentroidModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	var m CentroidModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model JSON: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

func (m *CentroidModel) validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("no classes defined")
	}
	if len(m.Centroids) != len(m.Classes) {
		return fmt.Errorf("%d centroids for %d classes", len(m.Centroids), len(m.Classes))
	}
	width := len(m.Centroids[0])
	if width == 0 {
		return fmt.Errorf("empty centroid vector")
	}
	for i, c := range m.Centroids {
		if len(c) != width {
			return fmt.Errorf("centroid %d has length %d, want %d", i, len(c), width)
		}
	}
	return nil
}

// NumFeatures returns the feature-vector length the model was trained on.
func (m *CentroidModel) NumFeatures() int {
	if len(m.Centroids) == 0 {
		return 0
	}
	return len(m.Centroids[0])
}

// Predict scores the vector against every class centroid. A vector that
// exactly matches a centroid gets the maximum weight; weights are normalized
// so the scores form a distribution.
func (m *CentroidModel) Predict(vector []float64) ([]float64, error) {
	if len(vector) != m.NumFeatures() {
		return nil, fmt.Errorf("vector length %d, model expects %d", len(vector), m.NumFeatures())
	}

	weights := make([]float64, len(m.Centroids))
	sum := 0.0
	for i, centroid := range m.Centroids {
		d := 0.0
		for j, v := range vector {
			diff := v - centroid[j]
			d += diff * diff
		}
		w := 1.0 / (1.0 + math.Sqrt(d))
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}
