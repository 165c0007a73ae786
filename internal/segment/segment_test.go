package segment

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore()

	seg := &Segment{ID: "SEG_AAAA0001", CustomerCount: 3}
	require.NoError(t, store.Create(seg))

	got, err := store.Get("SEG_AAAA0001")
	require.NoError(t, err)
	assert.Same(t, seg, got)
}

func TestStore_ConflictOnDuplicateID(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(&Segment{ID: "SEG_AAAA0001"}))

	err := store.Create(&Segment{ID: "SEG_AAAA0001"})
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "SEG_AAAA0001", conflict.ID)
}

func TestStore_GetNonexistent(t *testing.T) {
	store := NewStore()

	_, err := store.Get("nonexistent")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nonexistent", notFound.ID)
}

func TestStore_RejectsEmptyID(t *testing.T) {
	store := NewStore()
	assert.Error(t, store.Create(&Segment{}))
	assert.Error(t, store.Create(nil))
}

func TestStore_ListInsertionOrder(t *testing.T) {
	store := NewStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(&Segment{ID: fmt.Sprintf("SEG_%08d", i)}))
	}

	var ids []string
	for seg := range store.List() {
		ids = append(ids, seg.ID)
	}
	assert.Equal(t, []string{
		"SEG_00000000", "SEG_00000001", "SEG_00000002", "SEG_00000003", "SEG_00000004",
	}, ids)
}

func TestStore_ListRestartable(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(&Segment{ID: "SEG_AAAA0001"}))
	require.NoError(t, store.Create(&Segment{ID: "SEG_AAAA0002"}))

	seq := store.List()

	var first []string
	for seg := range seq {
		first = append(first, seg.ID)
		break // early exit must not poison the sequence
	}
	var second []string
	for seg := range seq {
		second = append(second, seg.ID)
	}

	assert.Equal(t, []string{"SEG_AAAA0001"}, first)
	assert.Equal(t, []string{"SEG_AAAA0001", "SEG_AAAA0002"}, second)
}

func TestStore_ConcurrentCreates(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Create(&Segment{ID: fmt.Sprintf("SEG_%08d", i)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
