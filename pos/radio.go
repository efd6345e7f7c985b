package pos

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ReplayRadio feeds pre-recorded scan bursts to a ScanSource, for running the
// pipeline on machines without a usable WiFi adapter. Each accepted scan
// request advances to the next burst; after the last burst the final one is
// repeated so the pipeline keeps producing a position.
type ReplayRadio struct {
	mu     sync.Mutex
	bursts [][]Observation
	index  int
}

// replayFile is the on-disk shape: a list of bursts, each burst a list of
// observations.
type replayFile struct {
	Bursts [][]Observation `json:"bursts"`
}

// LoadReplayRadio reads a recorded burst file.
func LoadReplayRadio(path string) (*ReplayRadio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading replay file: %w", err)
	}
	var rf replayFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing replay file %s: %w", path, err)
	}
	if len(rf.Bursts) == 0 {
		return nil, fmt.Errorf("replay file %s contains no bursts", path)
	}
	return &ReplayRadio{bursts: rf.Bursts, index: -1}, nil
}

func (r *ReplayRadio) RequestScan() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index < len(r.bursts)-1 {
		r.index++
	}
	return true
}

func (r *ReplayRadio) CachedResults() []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index < 0 {
		return nil
	}
	burst := r.bursts[r.index]
	out := make([]Observation, len(burst))
	copy(out, burst)
	return out
}

func (r *ReplayRadio) Enabled() bool           { return true }
func (r *ReplayRadio) PermissionGranted() bool { return true }

// PushRadio accepts observations pushed from an external collector, typically
// over HTTP. A scan request is accepted only when fresh data arrived since the
// previous acquisition, which maps collector silence onto the throttle
// back-off path.
type PushRadio struct {
	mu     sync.Mutex
	latest []Observation
	fresh  bool
}

func NewPushRadio() *PushRadio {
	return &PushRadio{}
}

// Push replaces the cached observations with a new batch.
func (p *PushRadio) Push(obs []Observation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = make([]Observation, len(obs))
	copy(p.latest, obs)
	p.fresh = true
}

func (p *PushRadio) RequestScan() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	accepted := p.fresh
	p.fresh = false
	return accepted
}

func (p *PushRadio) CachedResults() []Observation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Observation, len(p.latest))
	copy(out, p.latest)
	return out
}

func (p *PushRadio) Enabled() bool           { return true }
func (p *PushRadio) PermissionGranted() bool { return true }
