package pos

import "testing"

func testMeta() *ClassifierMetadata {
	return NewClassifierMetadata(
		[]string{"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02", "aa:bb:cc:dd:ee:03"},
		[]string{"Room 101", "Room 102"},
	)
}

func TestBuildVectorLengthInvariant(t *testing.T) {
	meta := testMeta()

	tests := []struct {
		name string
		obs  []Observation
	}{
		{"empty scan", nil},
		{"one observation", []Observation{{BSSID: "aa:bb:cc:dd:ee:01", RSSI: -40}}},
		{"more observations than features", []Observation{
			{BSSID: "aa:bb:cc:dd:ee:01", RSSI: -40},
			{BSSID: "aa:bb:cc:dd:ee:02", RSSI: -50},
			{BSSID: "aa:bb:cc:dd:ee:03", RSSI: -60},
			{BSSID: "ff:ff:ff:ff:ff:01", RSSI: -70},
			{BSSID: "ff:ff:ff:ff:ff:02", RSSI: -80},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, _ := BuildVector(tt.obs, meta)
			if len(vec) != meta.NumFeatures() {
				t.Errorf("len(vec) = %d, want %d", len(vec), meta.NumFeatures())
			}
		})
	}
}

func TestBuildVectorMissingSentinel(t *testing.T) {
	meta := testMeta()

	vec, matched := BuildVector(nil, meta)
	if matched != 0 {
		t.Errorf("matched = %d, want 0", matched)
	}
	for i, v := range vec {
		if v != MissingRSSI {
			t.Errorf("vec[%d] = %v, want %v", i, v, MissingRSSI)
		}
	}
}

func TestBuildVectorTrailingColonMatching(t *testing.T) {
	// Feature labels carry trailing colons, observations do not. Both must
	// address the same slots.
	meta := NewClassifierMetadata(
		[]string{"aa:bb:cc:dd:ee:01:", "aa:bb:cc:dd:ee:02:", "aa:bb:cc:dd:ee:03:"},
		[]string{"Room 101"},
	)
	obs := []Observation{
		{BSSID: "aa:bb:cc:dd:ee:01", RSSI: -45},
		{BSSID: "AA:BB:CC:DD:EE:02", RSSI: -67},
	}

	vec, matched := BuildVector(obs, meta)
	want := []float64{-45, -67, MissingRSSI}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
	if matched != 2 {
		t.Errorf("matched = %d, want 2", matched)
	}
}

func TestBuildVectorDuplicateBSSIDLastWins(t *testing.T) {
	meta := testMeta()
	obs := []Observation{
		{BSSID: "aa:bb:cc:dd:ee:01", RSSI: -40},
		{BSSID: "aa:bb:cc:dd:ee:01", RSSI: -55},
	}

	vec, matched := BuildVector(obs, meta)
	if vec[0] != -55 {
		t.Errorf("vec[0] = %v, want -55 (last duplicate wins)", vec[0])
	}
	if matched != 1 {
		t.Errorf("matched = %d, want 1 (duplicates count once)", matched)
	}
}

func TestBuildVectorUnknownBSSIDIgnored(t *testing.T) {
	meta := testMeta()
	obs := []Observation{
		{BSSID: "ff:ff:ff:ff:ff:ff", RSSI: -30},
		{BSSID: "aa:bb:cc:dd:ee:02", RSSI: -60},
	}

	vec, matched := BuildVector(obs, meta)
	if matched != 1 {
		t.Errorf("matched = %d, want 1", matched)
	}
	if vec[0] != MissingRSSI || vec[1] != -60 || vec[2] != MissingRSSI {
		t.Errorf("vec = %v, want [%v -60 %v]", vec, MissingRSSI, MissingRSSI)
	}
}
