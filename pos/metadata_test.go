package pos

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSlotMatching(t *testing.T) {
	meta := NewClassifierMetadata(
		[]string{"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02:", "AA-BB-CC-DD-EE-03"},
		[]string{"Room A", "Room B"},
	)

	tests := []struct {
		name  string
		bssid string
		want  int
		found bool
	}{
		{"exact match", "aa:bb:cc:dd:ee:01", 0, true},
		{"trailing colon in query", "aa:bb:cc:dd:ee:01:", 0, true},
		{"trailing colon in feature label", "aa:bb:cc:dd:ee:02", 1, true},
		{"both trailing colons", "aa:bb:cc:dd:ee:02:", 1, true},
		{"case and dash insensitive", "AA:BB:CC:DD:EE:03", 2, true},
		{"unknown", "ff:ff:ff:ff:ff:ff", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := meta.Slot(tt.bssid)
			if found != tt.found {
				t.Fatalf("Slot(%q) found = %v, want %v", tt.bssid, found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("Slot(%q) = %d, want %d", tt.bssid, got, tt.want)
			}
		})
	}
}

func TestDuplicateCanonicalLabelsFirstWins(t *testing.T) {
	meta := NewClassifierMetadata(
		[]string{"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:01:"},
		nil,
	)

	idx, ok := meta.Slot("aa:bb:cc:dd:ee:01")
	if !ok || idx != 0 {
		t.Errorf("Slot() = %d, %v; want 0, true", idx, ok)
	}
	if meta.NumFeatures() != 2 {
		t.Errorf("NumFeatures() = %d, want 2", meta.NumFeatures())
	}
}

func TestLoadFeatureList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.csv")
	content := "AA:BB:CC:DD:EE:01\n\naa-bb-cc-dd-ee-02\n  aa:bb:cc:dd:ee:03  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	labels, err := LoadFeatureList(path)
	if err != nil {
		t.Fatalf("LoadFeatureList() error = %v", err)
	}

	want := []string{"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02", "aa:bb:cc:dd:ee:03"}
	if len(labels) != len(want) {
		t.Fatalf("LoadFeatureList() returned %d labels, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestLoadFeatureListEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, []byte("\n\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFeatureList(path); err == nil {
		t.Error("LoadFeatureList() on empty file expected error, got nil")
	}
}

func TestLoadFeatureListMissingFile(t *testing.T) {
	if _, err := LoadFeatureList("/nonexistent/features.csv"); err == nil {
		t.Error("LoadFeatureList() on missing file expected error, got nil")
	}
}
