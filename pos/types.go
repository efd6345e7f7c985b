package pos

import "time"

// Observation is a single access-point reading from one scan.
type Observation struct {
	BSSID     string    `json:"bssid"`
	RSSI      int       `json:"rssi"`
	Timestamp time.Time `json:"timestamp"`
}

// Scan is one batch of observations as acquired from the radio.
// Observations keep acquisition order; duplicate BSSIDs within a scan are
// tolerated (last one wins during vector construction).
type Scan struct {
	ID           string        `json:"id"`
	Seq          uint64        `json:"seq"`
	Timestamp    time.Time     `json:"timestamp"`
	Observations []Observation `json:"observations"`
}

// Source identifies which classifier produced a prediction.
type Source int

const (
	SourceLocal Source = iota
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// RankedLabel pairs a class label with its score.
type RankedLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PredictionResult is the output of one classifier invocation. It is
// immutable once produced.
type PredictionResult struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	Top3       []RankedLabel `json:"top3"`
	MatchedAPs int           `json:"matchedAps"`
	TotalAPs   int           `json:"totalAps"`
	Source     Source        `json:"-"`
	ScanSeq    uint64        `json:"-"`
	Timestamp  time.Time     `json:"timestamp"`
}

// ResolvedLocation points into the immutable floor-graph collection. Graph
// and Node are references, never copies.
type ResolvedLocation struct {
	Graph *FloorGraph
	Node  *Node
}

// LocationUpdate is delivered to session subscribers whenever the displayed
// location changes or the degradation status changes.
type LocationUpdate struct {
	Label    string
	Location *ResolvedLocation // nil when the label resolved to no node
	Status   string
	Time     time.Time
}
