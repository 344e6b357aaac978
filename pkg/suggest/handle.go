package suggest

import (
	"errors"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// ErrNotReady is returned by Acquire before the first snapshot has been
// installed (cold start).
var ErrNotReady = errors.New("no active snapshot")

// Handle is the process-wide reference to the currently serving snapshot.
// Install replaces the reference atomically; concurrent readers see either
// the old or the new snapshot in its entirety, never a mix. A superseded
// snapshot stays alive until the last reader holding it releases, then its
// memory is reclaimed normally.
//
// Handle is constructed once at startup and passed to whichever component
// issues queries; there is no package-level singleton.
type Handle struct {
	active atomic.Pointer[slot]
}

// slot pairs a snapshot with its reader reference count. The count starts at
// one for the "currently active" reference, which Install drops when the slot
// retires.
type slot struct {
	snap *Snapshot
	refs atomic.Int64
}

// NewHandle returns an empty handle; Acquire fails with ErrNotReady until the
// first Install.
func NewHandle() *Handle {
	return &Handle{}
}

// Acquire returns the active snapshot and a release func the caller must
// invoke once done reading. It never blocks. The returned snapshot stays
// valid for the caller even if Install replaces it concurrently.
func (h *Handle) Acquire() (*Snapshot, func(), error) {
	for {
		s := h.active.Load()
		if s == nil {
			return nil, nil, ErrNotReady
		}
		if s.acquire() {
			return s.snap, s.release, nil
		}
		// Lost the race against a retiring slot that already drained; the
		// swap that retired it has published a successor, so retry.
	}
}

// Install atomically makes snap the active snapshot. The previous snapshot
// moves to retiring and is dropped once its outstanding readers finish. The
// swap itself is a single pointer exchange and never copies the snapshot.
func (h *Handle) Install(snap *Snapshot) {
	next := &slot{snap: snap}
	next.refs.Store(1)
	prev := h.active.Swap(next)
	if prev != nil {
		log.Debugf("Snapshot version %d retiring, version %d active", prev.snap.Version(), snap.Version())
		prev.release()
	} else {
		log.Debugf("Snapshot version %d active", snap.Version())
	}
}

// Ready reports whether a snapshot has been installed.
func (h *Handle) Ready() bool {
	return h.active.Load() != nil
}

// ActiveVersion returns the active snapshot's version, or zero before the
// first install.
func (h *Handle) ActiveVersion() uint32 {
	s := h.active.Load()
	if s == nil {
		return 0
	}
	return s.snap.Version()
}

// acquire increments the reference count unless the slot already drained to
// zero, in which case the snapshot is being reclaimed and must not be handed
// out again.
func (s *slot) acquire() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (s *slot) release() {
	if s.refs.Add(-1) == 0 {
		log.Debugf("Snapshot version %d released by last reader", s.snap.Version())
	}
}
