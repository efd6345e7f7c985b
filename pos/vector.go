package pos

// MissingRSSI is the sentinel written into feature slots whose access point
// was not observed in the current scan. It sits below any realistic
// measurement so the model treats it as "absent".
const MissingRSSI = -110

// BuildVector maps a variable set of observations onto the fixed-length
// feature vector defined by the metadata. Every slot starts at MissingRSSI;
// observed access points overwrite their slot (last write wins on
// duplicates). The returned matched count says how many observations landed
// in a known slot.
func BuildVector(observations []Observation, meta *ClassifierMetadata) ([]float64, int) {
	vec := make([]float64, meta.NumFeatures())
	for i := range vec {
		vec[i] = MissingRSSI
	}

	filled := make(map[int]bool, len(observations))
	matched := 0
	for _, obs := range observations {
		idx, ok := meta.Slot(obs.BSSID)
		if !ok {
			continue
		}
		vec[idx] = float64(obs.RSSI)
		if !filled[idx] {
			filled[idx] = true
			matched++
		}
	}
	return vec, matched
}
