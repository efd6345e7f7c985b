package pos

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ClassifierMetadata defines the index alignment between access-point
// identifiers and feature-vector slots, and between class indices and
// location labels. It is loaded once at classifier initialization and
// immutable afterward.
type ClassifierMetadata struct {
	FeatureLabels []string
	ClassLabels   []string

	slots map[string]int // canonical BSSID -> feature index
}

// NewClassifierMetadata builds metadata from ordered feature and class label
// lists. Feature labels are canonicalized for trailing-colon-insensitive slot
// lookup; the first occurrence of a duplicate canonical label wins.
func NewClassifierMetadata(featureLabels, classLabels []string) *ClassifierMetadata {
	m := &ClassifierMetadata{
		FeatureLabels: featureLabels,
		ClassLabels:   classLabels,
		slots:         make(map[string]int, len(featureLabels)),
	}
	for i, label := range featureLabels {
		key := canonicalKey(label)
		if _, exists := m.slots[key]; !exists {
			m.slots[key] = i
		}
	}
	return m
}

// NumFeatures returns the fixed feature-vector length.
func (m *ClassifierMetadata) NumFeatures() int { return len(m.FeatureLabels) }

// NumClasses returns the number of trained location labels.
func (m *ClassifierMetadata) NumClasses() int { return len(m.ClassLabels) }

// Slot returns the feature index for an access-point identifier, matching
// regardless of case, dash separators, or a trailing colon.
func (m *ClassifierMetadata) Slot(bssid string) (int, bool) {
	idx, ok := m.slots[canonicalKey(bssid)]
	return idx, ok
}

// LoadFeatureList reads a feature list file: one BSSID per line, in trained
// column order, as exported by the training pipeline. Blank lines are
// skipped.
func LoadFeatureList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading feature list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, NormalizeBSSID(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feature list: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("feature list %s is empty", path)
	}
	return labels, nil
}
