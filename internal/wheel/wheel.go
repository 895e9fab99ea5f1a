// Package wheel picks a restaurant at random and tracks the spin state.
//
// The winning index is drawn when a spin starts; the animation that follows
// is cosmetic and only decides when the result is revealed.
package wheel

import (
	"math/rand/v2"
	"sync"

	"github.com/me/lunchwheel/pkg/model"
)

// Selector draws uniform indices.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector. A nil rng uses a randomly seeded PCG source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// PickRandom returns a uniform index in [0, n).
func (s *Selector) PickRandom(n int) (int, error) {
	if n <= 0 {
		return 0, model.ErrEmptySet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n), nil
}

// Wheel holds the candidates and the current spin state.
type Wheel struct {
	mu         sync.Mutex
	selector   *Selector
	candidates []model.NormalizedPlace
	selected   *int
	pending    int
	spinning   bool
}

// New creates a Wheel over candidates.
func New(selector *Selector, candidates []model.NormalizedPlace) *Wheel {
	if selector == nil {
		selector = NewSelector(nil)
	}
	return &Wheel{selector: selector, candidates: candidates}
}

// SetCandidates replaces the candidate list and clears the last result.
// Changing the list mid-spin is refused.
func (w *Wheel) SetCandidates(candidates []model.NormalizedPlace) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spinning {
		return model.ErrSpinInProgress
	}
	w.candidates = candidates
	w.selected = nil
	return nil
}

// Spin starts a spin and returns the index that will be revealed by Finish.
// The previous result is cleared while the wheel turns.
func (w *Wheel) Spin() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spinning {
		return 0, model.ErrSpinInProgress
	}
	idx, err := w.selector.PickRandom(len(w.candidates))
	if err != nil {
		return 0, err
	}
	w.pending = idx
	w.selected = nil
	w.spinning = true
	return idx, nil
}

// Finish ends the spin and publishes the index drawn by Spin.
func (w *Wheel) Finish() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.spinning {
		return 0, model.ErrNoSpin
	}
	idx := w.pending
	w.selected = &idx
	w.spinning = false
	return idx, nil
}

// Spinning reports whether a spin is in progress.
func (w *Wheel) Spinning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spinning
}

// Selected returns the revealed place, if any.
func (w *Wheel) Selected() (model.NormalizedPlace, int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == nil {
		return model.NormalizedPlace{}, 0, false
	}
	return w.candidates[*w.selected], *w.selected, true
}

// Candidates returns the current candidate list.
func (w *Wheel) Candidates() []model.NormalizedPlace {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.candidates
}
