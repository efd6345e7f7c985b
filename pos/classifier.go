package pos

import (
	"log"
	"sort"
	"time"
)

// ErrorLabel is the degraded label produced when the local model faults.
// Downstream consumers treat it as "no usable local result".
const ErrorLabel = "Error"

// LocalClassifier runs the on-device model synchronously. It fails closed:
// any model fault is logged and converted into a degraded result rather than
// propagated.
type LocalClassifier struct {
	meta  *ClassifierMetadata
	model Model
}

// NewLocalClassifier wires a model to its metadata.
func NewLocalClassifier(meta *ClassifierMetadata, model Model) *LocalClassifier {
	return &LocalClassifier{meta: meta, model: model}
}

// Classify builds the feature vector for the scan and ranks the model's
// scores. It never returns nil.
func (lc *LocalClassifier) Classify(scan Scan) *PredictionResult {
	vector, matched := BuildVector(scan.Observations, lc.meta)

	scores, err := lc.model.Predict(vector)
	if err != nil {
		log.Printf("[LOCAL] model fault on scan %s: %v", scan.ID, err)
		return &PredictionResult{
			Label:     ErrorLabel,
			Source:    SourceLocal,
			ScanSeq:   scan.Seq,
			TotalAPs:  len(scan.Observations),
			Timestamp: time.Now(),
		}
	}
	if len(scores) != lc.meta.NumClasses() {
		log.Printf("[LOCAL] model returned %d scores for %d classes", len(scores), lc.meta.NumClasses())
		return &PredictionResult{
			Label:     ErrorLabel,
			Source:    SourceLocal,
			ScanSeq:   scan.Seq,
			TotalAPs:  len(scan.Observations),
			Timestamp: time.Now(),
		}
	}

	top := RankScores(scores, lc.meta.ClassLabels, 3)
	log.Printf("[LOCAL] scan %s: %s (%.2f), matched %d/%d APs",
		scan.ID, top[0].Label, top[0].Score, matched, len(scan.Observations))

	return &PredictionResult{
		Label:      top[0].Label,
		Confidence: top[0].Score,
		Top3:       top,
		MatchedAPs: min(len(scan.Observations), lc.meta.NumFeatures()),
		TotalAPs:   len(scan.Observations),
		Source:     SourceLocal,
		ScanSeq:    scan.Seq,
		Timestamp:  time.Now(),
	}
}

// RankScores returns the n best classes sorted by descending score. Ties
// keep class-index order so output stays deterministic.
func RankScores(scores []float64, labels []string, n int) []RankedLabel {
	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if n > len(indices) {
		n = len(indices)
	}
	ranked := make([]RankedLabel, 0, n)
	for _, idx := range indices[:n] {
		ranked = append(ranked, RankedLabel{Label: labels[idx], Score: scores[idx]})
	}
	return ranked
}
