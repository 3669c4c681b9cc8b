package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []struct {
		LineID uint
		Field  string
		Value  float64
	}
}

func (r *recorder) flush(lineID uint, field string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct {
		LineID uint
		Field  string
		Value  float64
	}{lineID, field, value})
}

func (r *recorder) snapshot() []struct {
	LineID uint
	Field  string
	Value  float64
} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(r.calls[:0:0], r.calls...)
}

func TestNewerEditSupersedesOlder(t *testing.T) {
	rec := &recorder{}
	w := NewWriter(30*time.Millisecond, rec.flush)
	defer w.Close()

	w.Set(1, "price", 10)
	w.Set(1, "price", 20)
	w.Set(1, "price", 95.5)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	calls := rec.snapshot()
	require.Equal(t, uint(1), calls[0].LineID)
	require.Equal(t, "price", calls[0].Field)
	require.Equal(t, 95.5, calls[0].Value)
}

func TestIndependentFieldsDoNotCoalesce(t *testing.T) {
	rec := &recorder{}
	w := NewWriter(20*time.Millisecond, rec.flush)
	defer w.Close()

	w.Set(1, "price", 10)
	w.Set(1, "quantity", 4)
	w.Set(2, "price", 7)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	rec := &recorder{}
	w := NewWriter(time.Hour, rec.flush)
	defer w.Close()

	w.Set(3, "quantity", 12)
	w.Flush()

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, 12.0, calls[0].Value)

	// A fired write must not fire again.
	w.Flush()
	require.Len(t, rec.snapshot(), 1)
}

func TestCloseRejectsFurtherSets(t *testing.T) {
	rec := &recorder{}
	w := NewWriter(time.Hour, rec.flush)

	w.Set(1, "price", 10)
	w.Close()
	w.Set(1, "price", 99)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, 10.0, calls[0].Value)
}
