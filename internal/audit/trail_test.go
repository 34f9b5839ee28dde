package audit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zaslon/internal/kv"
)

func TestAppendAndRecent(t *testing.T) {
	trail := NewTrail(kv.NewMemory(), nil)

	trail.Append(EventConnect, "a@corp.io", "c1", map[string]any{"endpoint": "x"})
	trail.Append(EventSubmission, "a@corp.io", "c1", map[string]any{"table": "orders"})

	events := trail.Recent(10)
	require.Len(t, events, 2)
	// новые первыми
	assert.Equal(t, EventSubmission, events[0].Kind)
	assert.Equal(t, EventConnect, events[1].Kind)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Time.IsZero())
}

// запись №1001 вытесняет №1: строгий FIFO-потолок
func TestCapacityFIFO(t *testing.T) {
	trail := NewTrail(kv.NewMemory(), nil)

	for i := 0; i < Capacity+1; i++ {
		trail.Append(EventSubmission, "", "", map[string]any{"n": i})
	}

	assert.Equal(t, Capacity, trail.Len())
	oldest, ok := trail.Oldest()
	require.True(t, ok)
	// №0 вытеснен, старейшая теперь №1
	assert.EqualValues(t, 1, oldest.Details["n"])
}

func TestPersistAndReload(t *testing.T) {
	store := kv.NewMemory()

	trail := NewTrail(store, nil)
	trail.Append(EventConnect, "a@corp.io", "c1", nil)
	trail.Append(EventDisconnect, "a@corp.io", "c1", nil)

	// новый Trail над тем же стором видит события
	again := NewTrail(store, nil)
	assert.Equal(t, 2, again.Len())
	events := again.Recent(0)
	assert.Equal(t, EventDisconnect, events[0].Kind)
}

func TestReloadCorruptState(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set("audit:trail", "{not json"))

	trail := NewTrail(store, nil)
	assert.Zero(t, trail.Len())
	// и дальше работает
	trail.Append(EventConnect, "", "", nil)
	assert.Equal(t, 1, trail.Len())
}

// конкурентные Append не должны ломать инвариант ёмкости
func TestConcurrentAppend(t *testing.T) {
	trail := NewTrail(kv.NewMemory(), nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				trail.Append(EventSubmission, fmt.Sprintf("u%d", g), "", nil)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, Capacity, trail.Len())
}
