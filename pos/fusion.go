package pos

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiescence window applied to fused labels
// before node resolution.
const DefaultDebounceWindow = 300 * time.Millisecond

// Fusion combines the latest local and remote predictions into a single
// current prediction. It is a pure selection: when the preferred source has
// no result yet the other one is not substituted, matching the display
// semantics of "preferred ? remote : local".
type Fusion struct {
	mu           sync.Mutex
	local        *PredictionResult
	remote       *PredictionResult
	preferRemote bool
}

// NewFusion creates a fusion layer with the given source preference.
func NewFusion(preferRemote bool) *Fusion {
	return &Fusion{preferRemote: preferRemote}
}

// SetLocal stores the latest local prediction, unless a result for a newer
// scan from the same source is already stored. The seq check and the store
// are one atomic step, so a network latecomer can never overwrite a fresher
// result. It returns the recomputed current prediction (nil when the
// selected source has none) and whether the result was accepted.
func (f *Fusion) SetLocal(p *PredictionResult) (*PredictionResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.local != nil && p.ScanSeq < f.local.ScanSeq {
		return f.currentLocked(), false
	}
	f.local = p
	return f.currentLocked(), true
}

// SetRemote stores the latest remote prediction under the same
// latest-completed-wins rule as SetLocal.
func (f *Fusion) SetRemote(p *PredictionResult) (*PredictionResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote != nil && p.ScanSeq < f.remote.ScanSeq {
		return f.currentLocked(), false
	}
	f.remote = p
	return f.currentLocked(), true
}

// SetPreferRemote flips the source preference and returns the recomputed
// current prediction.
func (f *Fusion) SetPreferRemote(prefer bool) *PredictionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferRemote = prefer
	return f.currentLocked()
}

// Current returns the prediction selected by the preference flag, or nil.
func (f *Fusion) Current() *PredictionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentLocked()
}

// Latest returns the most recent prediction from one source, or nil.
func (f *Fusion) Latest(source Source) *PredictionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if source == SourceRemote {
		return f.remote
	}
	return f.local
}

func (f *Fusion) currentLocked() *PredictionResult {
	if f.preferRemote {
		return f.remote
	}
	return f.local
}

// Debouncer suppresses label flicker: each offered value resets a quiescence
// timer, and only the value still standing when the timer expires — and only
// if it differs from the previously emitted one — is forwarded.
type Debouncer struct {
	window time.Duration
	emit   func(string)

	mu          sync.Mutex
	timer       *time.Timer
	pending     string
	lastEmitted string
	emittedOnce bool
	stopped     bool
}

// NewDebouncer creates a debouncer forwarding stable values to emit. The
// emit callback runs on the timer goroutine.
func NewDebouncer(window time.Duration, emit func(string)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, emit: emit}
}

// Offer submits a new value, restarting the quiescence window.
func (d *Debouncer) Offer(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = value
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	value := d.pending
	if d.emittedOnce && value == d.lastEmitted {
		d.mu.Unlock()
		return
	}
	d.lastEmitted = value
	d.emittedOnce = true
	d.mu.Unlock()

	d.emit(value)
}

// Stop cancels any pending emission. Subsequent Offers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
