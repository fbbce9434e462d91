package export

import (
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Handle is an addressable artifact held by a Store until it is released.
type Handle struct {
	Artifact
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	SizeKB     float64 `json:"size_kb"`
	Dimensions string  `json:"dimensions"`
	Error      string  `json:"error,omitempty"`
}

// Store keeps the artifacts of the latest processing run. Each run takes a
// token from Begin; committing with a token that is no longer the latest
// discards the results, so a slow earlier run cannot overwrite a newer one.
type Store struct {
	mu        sync.Mutex
	urlPrefix string
	latest    uint64
	handles   []Handle
	onRelease func(Handle)
}

// NewStore returns a store whose handle URLs start with urlPrefix.
func NewStore(urlPrefix string) *Store {
	return &Store{urlPrefix: urlPrefix}
}

// OnRelease registers a callback run for every released handle.
func (s *Store) OnRelease(fn func(Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRelease = fn
}

// Begin starts a run and returns its token.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// Commit replaces the held artifacts with those of the run identified by
// token. It reports false, keeping the current set, when a newer run has
// begun since.
func (s *Store) Commit(token uint64, artifacts []Artifact) ([]Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.latest {
		return nil, false
	}
	s.releaseAllLocked()

	s.handles = make([]Handle, 0, len(artifacts))
	for _, a := range artifacts {
		id := uuid.NewString()
		h := Handle{
			Artifact:   a,
			ID:         id,
			URL:        path.Join(s.urlPrefix, id),
			SizeKB:     roundKB(a.SizeKB()),
			Dimensions: a.Dimensions(),
		}
		if a.Err != nil {
			h.Error = a.Err.Error()
		}
		s.handles = append(s.handles, h)
	}
	return s.listLocked(), true
}

func (s *Store) listLocked() []Handle {
	out := make([]Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// List returns the held handles in run order.
func (s *Store) List() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// Get returns the handle with the given id.
func (s *Store) Get(id string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.handles {
		if h.ID == id {
			return h, nil
		}
	}
	return Handle{}, fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
}

// Release drops a single handle.
func (s *Store) Release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, h := range s.handles {
		if h.ID == id {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			s.releaseLocked(h)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
}

// Clear releases every handle and invalidates in-flight runs. It is used
// when a new image replaces the current one.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.releaseAllLocked()
}

// Close releases every handle.
func (s *Store) Close() {
	s.Clear()
}

func (s *Store) releaseAllLocked() {
	for _, h := range s.handles {
		s.releaseLocked(h)
	}
	s.handles = nil
}

func (s *Store) releaseLocked(h Handle) {
	if s.onRelease != nil {
		s.onRelease(h)
	}
}

func roundKB(kb float64) float64 {
	return float64(int64(kb*100+0.5)) / 100
}
