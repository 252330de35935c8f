package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/domain/core"
	"gocoherence/domain/stats"
)

func report(id string) *stats.Report {
	return &stats.Report{RunID: core.RunID(id), Label: id}
}

func TestReportStore_EvictsOldest(t *testing.T) {
	store := NewReportStore(2)
	store.Put(report("a"))
	store.Put(report("b"))
	store.Put(report("c"))

	_, ok := store.Get("a")
	assert.False(t, ok)
	got, ok := store.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.Label)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Label)
	assert.Equal(t, "b", list[1].Label)
}

func TestReportStore_ReplaceMovesToFront(t *testing.T) {
	store := NewReportStore(0)
	store.Put(report("a"))
	store.Put(report("b"))
	replacement := report("a")
	replacement.Label = "a2"
	store.Put(replacement)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].Label)
}

func TestReportStore_ConcurrentAccess(t *testing.T) {
	store := NewReportStore(8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Put(report(fmt.Sprintf("r%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = store.List()
		}()
	}
	wg.Wait()
	assert.Len(t, store.List(), 8)
}
