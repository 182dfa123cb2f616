package data

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectme/models"
)

var cacheNow = time.Date(2025, time.December, 15, 9, 30, 0, 0, time.UTC)

func TestLocalCachePostIts(t *testing.T) {
	kv := openTestKV(t)
	cache := NewLocalCache(kv, testclock.NewClock(cacheNow))

	_, ok := cache.LoadPostIts()
	assert.False(t, ok)
	_, ok = cache.LastSync()
	assert.False(t, ok)

	postIts := []models.PostIt{
		{ID: "1", Content: "a", Category: models.CategoryStudio, Campus: models.CampusLeonardo, Participants: 1, ParticipantIDs: []string{"u"}, Position: models.Position{X: 1, Y: 2}, Color: "#5B92FF"},
		{ID: "2", Content: "b", Category: models.CategoryLunch, Campus: models.CampusBovisa, Position: models.Position{X: 3, Y: 4}, Color: "#FB2E74"},
	}
	cache.SavePostIts(postIts)

	records, ok := cache.LoadPostIts()
	require.True(t, ok)
	require.Len(t, records, 2)
	for i, rec := range records {
		p, ok := rec.Sanitize()
		require.True(t, ok)
		assert.Equal(t, postIts[i], p)
	}

	stamp, ok := cache.LastSync()
	require.True(t, ok)
	assert.True(t, stamp.Equal(cacheNow))
}

func TestLocalCacheEmptyCollectionIsStored(t *testing.T) {
	cache := NewLocalCache(openTestKV(t), nil)
	cache.SavePostIts(nil)

	records, ok := cache.LoadPostIts()
	assert.True(t, ok)
	assert.Empty(t, records)
}

func TestLocalCacheSkipsCorruptEntries(t *testing.T) {
	kv := openTestKV(t)
	cache := NewLocalCache(kv, nil)

	require.NoError(t, kv.Set(PostItsKey, `[{"id":"1","position":{"x":1,"y":1}}, 17, "x", {"id":"2","position":{"x":2,"y":2}}]`))
	records, ok := cache.LoadPostIts()
	require.True(t, ok)
	assert.Len(t, records, 2)

	require.NoError(t, kv.Set(PostItsKey, `{not json`))
	_, ok = cache.LoadPostIts()
	assert.False(t, ok)

	require.NoError(t, kv.Set(JoinedKey, `"oops"`))
	_, ok = cache.LoadJoinedIDs()
	assert.False(t, ok)
}

func TestLocalCacheJoinedAndSection(t *testing.T) {
	cache := NewLocalCache(openTestKV(t), nil)

	_, ok := cache.LoadJoinedIDs()
	assert.False(t, ok)
	cache.SaveJoinedIDs([]string{"3", "1"})
	ids, ok := cache.LoadJoinedIDs()
	require.True(t, ok)
	assert.Equal(t, []string{"3", "1"}, ids)

	_, ok = cache.LoadActiveSection()
	assert.False(t, ok)
	cache.SaveActiveSection("bacheca")
	section, ok := cache.LoadActiveSection()
	require.True(t, ok)
	assert.Equal(t, "bacheca", section)
}

func TestLocalCachePending(t *testing.T) {
	cache := NewLocalCache(openTestKV(t), nil)

	_, ok := cache.LoadPending()
	assert.False(t, ok)

	cache.SavePending(models.PendingChanges{Upserts: []string{"1765792800000"}, Deletes: []string{"7"}})
	pending, ok := cache.LoadPending()
	require.True(t, ok)
	assert.Equal(t, models.PendingChanges{Upserts: []string{"1765792800000"}, Deletes: []string{"7"}}, pending)

	cache.SavePending(models.PendingChanges{})
	pending, ok = cache.LoadPending()
	require.True(t, ok)
	assert.True(t, pending.Empty())
}

func TestLocalCacheWithDisabledStorage(t *testing.T) {
	cache := NewLocalCache(nil, nil)

	assert.NotPanics(t, func() {
		cache.SavePostIts([]models.PostIt{{ID: "1"}})
		cache.SaveJoinedIDs([]string{"1"})
		cache.SaveActiveSection("home")
		cache.SavePending(models.PendingChanges{Upserts: []string{"1"}})
	})
	_, ok := cache.LoadPostIts()
	assert.False(t, ok)
	_, ok = cache.LoadJoinedIDs()
	assert.False(t, ok)
	_, ok = cache.LoadActiveSection()
	assert.False(t, ok)
	_, ok = cache.LoadPending()
	assert.False(t, ok)
}
