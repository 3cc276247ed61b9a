package light

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrStoreFull is returned when a light is added to a store at capacity.
var ErrStoreFull = errors.New("light: store is full")

type storeImpl struct {
	mu *sync.Mutex

	lights  []Light
	count   int
	ambient mgl32.Vec3
	version uint64
}

// Store is a fixed-capacity, array-backed set of point lights plus a count.
// Capacity is fixed at construction; the GPU light buffer is sized from it.
//
// Callers mutate the store between frames. The renderer copies the active lights
// once per frame via Snapshot, so the frame's cluster build, geometry and resolve
// stages all observe the same light set.
type Store interface {
	// Capacity returns the fixed number of light slots.
	Capacity() int

	// Count returns the number of active lights, always <= Capacity.
	Count() int

	Ambient() mgl32.Vec3

	// Version increments on every mutation.
	Version() uint64

	// Add appends a light to the active range.
	//
	// Parameters:
	//   - l: the light to append
	//
	// Returns:
	//   - int: the light's index
	//   - error: ErrStoreFull if Count() == Capacity()
	Add(l Light) (int, error)

	// At returns the light at index i, which must be < Count().
	At(i int) Light

	// Set replaces the light at index i, which must be < Count().
	Set(i int, l Light)

	// SetCount grows or shrinks the active range. Growing exposes whatever the
	// slots previously held (zero-valued lights if never written).
	//
	// Returns:
	//   - error: if n is negative or exceeds Capacity()
	SetCount(n int) error

	SetAmbient(r, g, b float32)

	// Update applies fn to every active light in index order under the store lock.
	Update(fn func(i int, l *Light))

	// Snapshot copies the active lights into dst (reusing its storage) and returns it
	// together with the ambient term.
	Snapshot(dst []Light) ([]Light, mgl32.Vec3)

	// Clear sets the count to zero.
	Clear()
}

var _ Store = &storeImpl{}

// NewStore creates an empty store with the given capacity.
//
// Parameters:
//   - capacity: number of light slots, must be > 0
//
// Returns:
//   - Store: the new store
func NewStore(capacity int) Store {
	if capacity <= 0 {
		panic(fmt.Sprintf("light: invalid store capacity %d", capacity))
	}
	return &storeImpl{
		mu:     &sync.Mutex{},
		lights: make([]Light, capacity),
	}
}

func (s *storeImpl) Capacity() int {
	return len(s.lights)
}

func (s *storeImpl) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *storeImpl) Ambient() mgl32.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ambient
}

func (s *storeImpl) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *storeImpl) Add(l Light) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == len(s.lights) {
		return -1, ErrStoreFull
	}
	idx := s.count
	s.lights[idx] = l
	s.count++
	s.version++
	return idx, nil
}

func (s *storeImpl) At(i int) Light {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.count {
		panic(fmt.Sprintf("light: index %d out of range [0,%d)", i, s.count))
	}
	return s.lights[i]
}

func (s *storeImpl) Set(i int, l Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.count {
		panic(fmt.Sprintf("light: index %d out of range [0,%d)", i, s.count))
	}
	s.lights[i] = l
	s.version++
}

func (s *storeImpl) SetCount(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n > len(s.lights) {
		return fmt.Errorf("light: count %d outside [0,%d]", n, len(s.lights))
	}
	s.count = n
	s.version++
	return nil
}

func (s *storeImpl) SetAmbient(r, g, b float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = mgl32.Vec3{r, g, b}
	s.version++
}

func (s *storeImpl) Update(fn func(i int, l *Light)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < s.count; i++ {
		fn(i, &s.lights[i])
	}
	s.version++
}

func (s *storeImpl) Snapshot(dst []Light) ([]Light, mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst = append(dst[:0], s.lights[:s.count]...)
	return dst, s.ambient
}

func (s *storeImpl) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
	s.version++
}
