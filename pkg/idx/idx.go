package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

// Generator hands out unique, roughly time-ordered identifiers.
type Generator interface {
	Next() ID
}

// ULIDGenerator safely generates ULIDs concurrently using a monotonic
// entropy source. Within one millisecond IDs are strictly increasing.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewGenerator returns a generator reading time from the system clock.
func NewGenerator() *ULIDGenerator {
	return NewGeneratorWithClock(time.Now)
}

// NewGeneratorWithClock is NewGenerator with an injectable clock.
func NewGeneratorWithClock(now func() time.Time) *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0), // Max Monotonic Window
		now:     now,
	}
}

// Next returns a new ID stamped with the current time.
func (g *ULIDGenerator) Next() ID {
	return g.NextAt(g.now())
}

// NextAt returns a new ID stamped with t.
func (g *ULIDGenerator) NextAt(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := ulid.MustNew(ulid.Timestamp(t.UTC()), g.entropy)
	return ID(u.String())
}

var (
	defaultOnce sync.Once
	defaultGen  *ULIDGenerator
)

// New returns an ID from a process-wide generator. Prefer an injected
// Generator in services; this exists for request IDs and similar leaf uses.
func New() ID {
	defaultOnce.Do(func() { defaultGen = NewGenerator() })
	return defaultGen.Next()
}

// Parse parses a ULID string into an ID and validates its form.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}

	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}

	return ID(s), nil
}

// MustParse parses or panics. Useful for hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Time extracts the embedded UTC timestamp from the ID.
// If the ID is invalid or zero, it returns the zero time.
func (id ID) Time() time.Time {
	if id.IsZero() {
		return time.Time{}
	}

	u, err := ulid.ParseStrict(id.String())
	if err != nil {
		return time.Time{}
	}

	return ulid.Time(u.Time())
}

// Compare reports the lexical ordering between a and b.
// Returns -1 if a<b, 0 if a==b, +1 if a>b.
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}
