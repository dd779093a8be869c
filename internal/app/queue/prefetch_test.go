package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefetch_AdmissionBound(t *testing.T) {
	p := NewPrefetch(2)
	p.AddPending("a")
	p.AddPending("b")
	p.AddPending("c")

	assert.Equal(t, []string{"a", "b"}, p.ItemsToGenerate())

	// Admission itself does not mutate the tracker.
	assert.Equal(t, []string{"a", "b"}, p.ItemsToGenerate())

	p.Remove("a")
	p.IncrementGenerating()
	p.Remove("b")
	p.IncrementGenerating()

	assert.Nil(t, p.ItemsToGenerate())
	assert.Equal(t, 2, p.Generating())
	assert.Equal(t, 1, p.PendingCount())

	p.DecrementGenerating()
	assert.Equal(t, []string{"c"}, p.ItemsToGenerate())
}

func TestPrefetch_FewerPendingThanSlots(t *testing.T) {
	p := NewPrefetch(4)
	p.AddPending("only")

	assert.Equal(t, []string{"only"}, p.ItemsToGenerate())
}

func TestPrefetch_DuplicateAddIgnored(t *testing.T) {
	p := NewPrefetch(2)
	p.AddPending("a")
	p.AddPending("a")

	assert.Equal(t, 1, p.PendingCount())
	assert.Equal(t, []string{"a"}, p.ItemsToGenerate())
}

func TestPrefetch_RemoveUnknownIsNoop(t *testing.T) {
	p := NewPrefetch(2)
	p.AddPending("a")
	p.Remove("ghost")

	assert.Equal(t, 1, p.PendingCount())
}

func TestPrefetch_DecrementFloorsAtZero(t *testing.T) {
	p := NewPrefetch(2)
	p.AddPending("a")
	p.Remove("a")
	p.IncrementGenerating()

	// A clear resets the counter while one call is still in flight.
	p.Clear()
	assert.Equal(t, 0, p.Generating())

	// The stale completion must not unlock extra admission slots.
	p.DecrementGenerating()
	assert.Equal(t, 0, p.Generating())

	p.AddPending("b")
	p.AddPending("c")
	p.AddPending("d")
	assert.Equal(t, []string{"b", "c"}, p.ItemsToGenerate())
}

func TestPrefetch_Clear(t *testing.T) {
	p := NewPrefetch(2)
	p.AddPending("a")
	p.AddPending("b")
	p.Remove("a")
	p.IncrementGenerating()

	p.Clear()

	assert.Equal(t, 0, p.PendingCount())
	assert.Equal(t, 0, p.Generating())
	assert.Nil(t, p.ItemsToGenerate())
}

func TestNewPrefetch_ClampsLimit(t *testing.T) {
	p := NewPrefetch(0)
	p.AddPending("a")
	p.AddPending("b")

	assert.Equal(t, []string{"a"}, p.ItemsToGenerate())
}
