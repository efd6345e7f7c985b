package pos

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ScanState is the scan source state machine value.
type ScanState int

const (
	StateIdle ScanState = iota
	StateScanning
	StateError
)

func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Radio abstracts the platform scan API. RequestScan triggers an
// acquisition and reports whether the platform accepted it (false means
// throttled or rejected). CachedResults may be called at any time, including
// before a request completes.
type Radio interface {
	RequestScan() bool
	CachedResults() []Observation
	Enabled() bool
	PermissionGranted() bool
}

// ScanTiming holds the adaptive acquisition cadence knobs.
type ScanTiming struct {
	InitialDelay  time.Duration
	FastInterval  time.Duration
	SlowInterval  time.Duration
	ThrottleLimit int // consecutive throttles tolerated before backing off
}

// DefaultScanTiming returns the production cadence: first acquisition after
// 1s, then every 3s, degrading to 5s under platform rate limiting.
func DefaultScanTiming() ScanTiming {
	return ScanTiming{
		InitialDelay:  1 * time.Second,
		FastInterval:  3 * time.Second,
		SlowInterval:  5 * time.Second,
		ThrottleLimit: 2,
	}
}

// ScanSource periodically acquires signal-strength snapshots from a Radio
// and publishes them to subscribers. Throttled acquisitions drive a
// hysteresis between a fast and a slow polling interval; only missing
// permission or a disabled radio is surfaced as an error state.
type ScanSource struct {
	radio  Radio
	timing ScanTiming

	mu        sync.Mutex
	state     ScanState
	errReason string
	throttles int
	seq       uint64
	subs      []func(Scan)
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewScanSource creates a scan source in the Idle state.
func NewScanSource(radio Radio, timing ScanTiming) *ScanSource {
	return &ScanSource{radio: radio, timing: timing}
}

// Subscribe registers a callback invoked for every published Scan. Callbacks
// run on the acquisition goroutine and should hand work off quickly.
func (s *ScanSource) Subscribe(fn func(Scan)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns the current state machine value and, for StateError, the
// reason.
func (s *ScanSource) State() (ScanState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.errReason
}

// IsScanning reports whether the acquisition loop is running.
func (s *ScanSource) IsScanning() bool {
	state, _ := s.State()
	return state == StateScanning
}

// Start begins periodic acquisition. Cached observations are published
// immediately without waiting for a fresh acquisition. Start fails, and the
// source transitions to StateError, when scan permission is missing or the
// radio is disabled.
func (s *ScanSource) Start() error {
	s.mu.Lock()
	if s.state == StateScanning {
		s.mu.Unlock()
		return nil
	}

	if !s.radio.PermissionGranted() {
		s.state = StateError
		s.errReason = "scan permission not granted"
		s.mu.Unlock()
		return fmt.Errorf("starting scan source: scan permission not granted")
	}
	if !s.radio.Enabled() {
		s.state = StateError
		s.errReason = "radio disabled"
		s.mu.Unlock()
		return fmt.Errorf("starting scan source: radio disabled")
	}

	s.state = StateScanning
	s.errReason = ""
	s.throttles = 0
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	// Seed subscribers with whatever the platform already has cached.
	if cached := s.radio.CachedResults(); len(cached) > 0 {
		s.publish(cached)
	}

	s.wg.Add(1)
	go s.loop(stopCh)
	return nil
}

// Stop halts acquisition and returns the source to Idle. It is idempotent
// and safe to call when never started; any scheduled-but-not-yet-fired
// acquisition is cancelled.
func (s *ScanSource) Stop() {
	s.mu.Lock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.state = StateIdle
	s.errReason = ""
	s.mu.Unlock()

	s.wg.Wait()
}

// NextInterval returns the interval the next acquisition will be scheduled
// at, reflecting the current throttle hysteresis.
func (s *ScanSource) NextInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalLocked()
}

func (s *ScanSource) intervalLocked() time.Duration {
	if s.throttles > s.timing.ThrottleLimit {
		return s.timing.SlowInterval
	}
	return s.timing.FastInterval
}

func (s *ScanSource) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	delay := s.timing.InitialDelay
	for {
		select {
		case <-stopCh:
			return
		case <-time.After(delay):
		}
		delay = s.acquire()
	}
}

// acquire performs one acquisition attempt and returns the delay until the
// next one. A refused request counts as a throttle event; cached results are
// still published so consumers keep receiving data under rate limiting. An
// acquisition that yields zero observations publishes nothing and simply
// reschedules.
func (s *ScanSource) acquire() time.Duration {
	accepted := s.radio.RequestScan()
	results := s.radio.CachedResults()

	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return s.timing.FastInterval
	}

	if accepted {
		s.throttles = 0
	} else {
		s.throttles++
		if s.throttles == s.timing.ThrottleLimit+1 {
			log.Printf("[SCAN] %d consecutive throttled requests, backing off to %v",
				s.throttles, s.timing.SlowInterval)
		}
	}
	next := s.intervalLocked()
	s.mu.Unlock()

	if len(results) > 0 {
		s.publish(results)
	}
	return next
}

// publish normalizes identifiers, stamps the scan, and delivers it to all
// subscribers registered at publish time.
func (s *ScanSource) publish(raw []Observation) {
	s.mu.Lock()
	s.seq++
	scan := Scan{
		ID:           uuid.NewString(),
		Seq:          s.seq,
		Timestamp:    time.Now(),
		Observations: make([]Observation, 0, len(raw)),
	}
	subs := make([]func(Scan), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, obs := range raw {
		obs.BSSID = NormalizeBSSID(obs.BSSID)
		scan.Observations = append(scan.Observations, obs)
	}

	for _, fn := range subs {
		fn(scan)
	}
}
