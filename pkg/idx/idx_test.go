package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookly/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.NotEmpty(t, id.String())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.False(t, id.IsZero())
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", s)
	}
}

func TestOrdering(t *testing.T) {
	g := idx.NewGenerator()
	a := g.NextAt(time.Unix(1, 0))
	b := g.NextAt(time.Unix(2, 0))

	require.Equal(t, -1, idx.Compare(a, b))
	require.Equal(t, 1, idx.Compare(b, a))
	require.Equal(t, 0, idx.Compare(a, a))
}

func TestMonotonicWithinSameInstant(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	g := idx.NewGeneratorWithClock(func() time.Time { return fixed })

	prev := g.Next()
	for range 100 {
		next := g.Next()
		require.Equal(t, 1, idx.Compare(next, prev), "ids from the same millisecond must still increase")
		prev = next
	}
}

func TestConcurrentCallersGetUniqueIDs(t *testing.T) {
	g := idx.NewGenerator()

	const workers, perWorker = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[idx.ID]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]idx.ID, 0, perWorker)
			for range perWorker {
				local = append(local, g.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewGenerator().NextAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
	require.True(t, idx.Zero.Time().IsZero())
}

func TestMustParse(t *testing.T) {
	require.NotPanics(t, func() { idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV") })
	require.Panics(t, func() { idx.MustParse("nope") })
}
