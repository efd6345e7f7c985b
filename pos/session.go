package pos

import (
	"context"
	"log"
	"sync"
	"time"
)

// Session degradation status strings shown to the display layer.
const (
	StatusOK                = "ok"
	StatusNoNetworks        = "no networks detected"
	StatusRemoteUnavailable = "remote unavailable, showing local only"
	StatusLocalUnavailable  = "local classifier error, showing remote only"
	StatusNoMapLocation     = "no map location for this prediction"
)

// PositioningSession owns the scan loop and fans each scan out to both
// classifiers in parallel. Per source, only the latest-completed result for
// the newest scan is retained; a response for a superseded scan is
// discarded on arrival. The fused label is debounced and resolved to a map
// node, and every change is broadcast to subscribers.
//
// The session's lifetime is owned by the composition boundary (the app);
// consumers receive it by reference rather than through a global.
type PositioningSession struct {
	scans    *ScanSource
	local    *LocalClassifier
	remote   *RemoteClassifier // nil disables the remote source
	fusion   *Fusion
	debounce *Debouncer
	resolver *NodeResolver
	graphs   []*FloorGraph

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	currentLabel   string
	current        *ResolvedLocation
	status         string
	remoteDown     bool
	localDegraded  bool
	stopped        bool
	locationSubs   []func(LocationUpdate)
	predictionSubs []func(*PredictionResult)
	wg             sync.WaitGroup
}

// SessionDeps bundles the collaborators a session orchestrates.
type SessionDeps struct {
	Scans    *ScanSource
	Local    *LocalClassifier
	Remote   *RemoteClassifier
	Resolver *NodeResolver
	Graphs   []*FloorGraph

	PreferRemote   bool
	DebounceWindow time.Duration
}

// NewPositioningSession wires a session from its dependencies. Start must be
// called before any scans flow.
func NewPositioningSession(deps SessionDeps) *PositioningSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &PositioningSession{
		scans:    deps.Scans,
		local:    deps.Local,
		remote:   deps.Remote,
		fusion:   NewFusion(deps.PreferRemote),
		resolver: deps.Resolver,
		graphs:   deps.Graphs,
		ctx:      ctx,
		cancel:   cancel,
		status:   StatusOK,
	}
	s.debounce = NewDebouncer(deps.DebounceWindow, s.onStableLabel)
	s.scans.Subscribe(s.handleScan)
	return s
}

// OnLocation registers a subscriber for location/status updates.
func (s *PositioningSession) OnLocation(fn func(LocationUpdate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locationSubs = append(s.locationSubs, fn)
}

// OnPrediction registers a subscriber invoked for every accepted
// per-source prediction, before fusion.
func (s *PositioningSession) OnPrediction(fn func(*PredictionResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictionSubs = append(s.predictionSubs, fn)
}

// Start begins scanning. It fails when scan preconditions (permission,
// radio) are not met.
func (s *PositioningSession) Start() error {
	return s.scans.Start()
}

// Stop halts the scan loop and discards any in-flight classification
// results when they arrive. Idempotent.
func (s *PositioningSession) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.scans.Stop()
	s.cancel()
	s.debounce.Stop()
	s.wg.Wait()
}

// Current returns the fused label, its resolved location (nil when
// unresolved), and the degradation status string.
func (s *PositioningSession) Current() (string, *ResolvedLocation, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLabel, s.current, s.status
}

// LatestPrediction returns the most recent retained prediction from one
// source, or nil.
func (s *PositioningSession) LatestPrediction(source Source) *PredictionResult {
	return s.fusion.Latest(source)
}

// SetPreferRemote flips which source drives the displayed location.
func (s *PositioningSession) SetPreferRemote(prefer bool) {
	if current := s.fusion.SetPreferRemote(prefer); current != nil && current.Label != ErrorLabel {
		s.debounce.Offer(current.Label)
	}
}

// Graphs exposes the immutable floor-graph collection.
func (s *PositioningSession) Graphs() []*FloorGraph {
	return s.graphs
}

// ScanState returns the scan source state for status reporting.
func (s *PositioningSession) ScanState() (ScanState, string) {
	return s.scans.State()
}

// handleScan is the per-cycle dispatch. Classification for a previous cycle
// may still be in flight; this does not wait for it.
func (s *PositioningSession) handleScan(scan Scan) {
	if len(scan.Observations) == 0 {
		s.mu.Lock()
		s.status = StatusNoNetworks
		update := LocationUpdate{Label: s.currentLabel, Location: s.current, Status: s.status, Time: time.Now()}
		subs := append([]func(LocationUpdate){}, s.locationSubs...)
		s.mu.Unlock()
		for _, fn := range subs {
			fn(update)
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptResult(s.local.Classify(scan))
	}()

	if s.remote != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			res, err := s.remote.Classify(s.ctx, scan)
			if err != nil {
				log.Printf("[REMOTE] scan %s unavailable: %v", scan.ID, err)
				s.setRemoteDown(true)
				return
			}
			s.setRemoteDown(false)
			s.acceptResult(res)
		}()
	}
}

// acceptResult applies the latest-completed-wins rule. The fusion store
// performs the seq check and the store as one atomic step, so a network
// latecomer cannot overwrite fresher state no matter how long a subscriber
// callback stalls. Subscribers only see accepted results, after the store.
func (s *PositioningSession) acceptResult(res *PredictionResult) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	var accepted bool
	if res.Source == SourceRemote {
		_, accepted = s.fusion.SetRemote(res)
	} else {
		_, accepted = s.fusion.SetLocal(res)
	}
	if !accepted {
		log.Printf("[SESSION] discarding stale %s result for scan seq %d", res.Source, res.ScanSeq)
		return
	}

	s.mu.Lock()
	if res.Source == SourceLocal {
		s.localDegraded = res.Label == ErrorLabel
	}
	predSubs := append([]func(*PredictionResult){}, s.predictionSubs...)
	s.mu.Unlock()

	for _, fn := range predSubs {
		fn(res)
	}

	if current := s.fusion.Current(); current != nil && current.Label != ErrorLabel {
		s.debounce.Offer(current.Label)
	}
}

func (s *PositioningSession) setRemoteDown(down bool) {
	s.mu.Lock()
	changed := s.remoteDown != down
	s.remoteDown = down
	s.mu.Unlock()
	if changed && !down {
		log.Printf("[REMOTE] prediction service reachable again")
	}
}

// onStableLabel receives labels that survived the debounce window and
// resolves them against the floor graphs.
func (s *PositioningSession) onStableLabel(label string) {
	loc := s.resolver.Resolve(label, s.graphs)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.currentLabel = label
	s.current = loc
	s.status = s.statusLocked(loc)
	update := LocationUpdate{Label: label, Location: loc, Status: s.status, Time: time.Now()}
	subs := append([]func(LocationUpdate){}, s.locationSubs...)
	s.mu.Unlock()

	if loc == nil {
		log.Printf("[SESSION] label %q resolved to no map node", label)
	} else {
		log.Printf("[SESSION] label %q -> %s node %s", label, loc.Graph.Key(), loc.Node.ID)
	}

	for _, fn := range subs {
		fn(update)
	}
}

func (s *PositioningSession) statusLocked(loc *ResolvedLocation) string {
	switch {
	case loc == nil:
		return StatusNoMapLocation
	case s.remote != nil && s.remoteDown:
		return StatusRemoteUnavailable
	case s.localDegraded:
		return StatusLocalUnavailable
	default:
		return StatusOK
	}
}
