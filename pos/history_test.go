package pos

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestHistory(t *testing.T, limit int) *HistoryStore {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"), limit)
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistoryAppendAndRecent(t *testing.T) {
	h := openTestHistory(t, 100)

	for i := 0; i < 5; i++ {
		entry := HistoryEntry{
			Timestamp: time.Now(),
			Label:     fmt.Sprintf("Room %d", i),
			NodeID:    fmt.Sprintf("NODE_%d", i),
			Status:    StatusOK,
		}
		if err := h.Append(entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := h.Recent(3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent(3) returned %d entries, want 3", len(entries))
	}
	// Newest first.
	if entries[0].Label != "Room 4" || entries[2].Label != "Room 2" {
		t.Errorf("Recent order = %s .. %s, want Room 4 .. Room 2", entries[0].Label, entries[2].Label)
	}
}

func TestHistoryRetentionLimit(t *testing.T) {
	h := openTestHistory(t, 3)

	for i := 0; i < 10; i++ {
		entry := HistoryEntry{Timestamp: time.Now(), Label: fmt.Sprintf("Room %d", i), Status: StatusOK}
		if err := h.Append(entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent() returned %d entries, want retention limit 3", len(entries))
	}
	if entries[0].Label != "Room 9" || entries[2].Label != "Room 7" {
		t.Errorf("retained entries = %s .. %s, want Room 9 .. Room 7", entries[0].Label, entries[2].Label)
	}
}

func TestHistoryRecentEmpty(t *testing.T) {
	h := openTestHistory(t, 10)

	entries, err := h.Recent(5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Recent() on empty store returned %d entries, want 0", len(entries))
	}
}
