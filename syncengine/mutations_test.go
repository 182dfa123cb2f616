package syncengine

import (
	"context"
	"strconv"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectme/models"
)

func loaded(t *testing.T, remote *fakeRemote) *harness {
	t.Helper()
	h := newHarness(t, remote, nil)
	h.engine.Load(context.Background())
	return h
}

func TestCreate(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)

	p, err := h.engine.Create(context.Background(), models.Draft{
		Title:    "Pranzo",
		Content:  "Chi viene in mensa?",
		Category: models.CategoryLunch,
		Campus:   models.CampusBovisa,
	})
	require.NoError(t, err)
	h.engine.Wait()

	assert.Equal(t, strconv.FormatInt(testNow.UnixMilli(), 10), p.ID)
	assert.Equal(t, "#FB2E74", p.Color)
	assert.Equal(t, 1, p.Participants)
	assert.Equal(t, []string{testUser}, p.ParticipantIDs)
	assert.Equal(t, models.Position{X: 250, Y: 200}, p.Position)
	assert.Zero(t, p.AgeFactor(testNow))

	assert.True(t, h.session.IsJoined(p.ID))
	assert.Equal(t, []string{"a", p.ID}, ids(h.cache.stored()))
	require.Len(t, remote.upserts, 1)
	assert.Equal(t, p, remote.upserts[0])
	assert.True(t, h.engine.BackendOnline())
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	h := loaded(t, newFakeRemote(postIt("a", models.CategoryStudio, 1)))
	draft := models.Draft{Content: "x", Category: models.CategorySport, Campus: models.CampusLeonardo}

	first, err := h.engine.Create(context.Background(), draft)
	require.NoError(t, err)
	second, err := h.engine.Create(context.Background(), draft)
	require.NoError(t, err)
	h.engine.Wait()

	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)
	before := h.session.PostIts()

	for _, draft := range []models.Draft{
		{Content: "  ", Category: models.CategoryStudio, Campus: models.CampusLeonardo},
		{Content: "x", Category: "Cinema", Campus: models.CampusLeonardo},
		{Content: "x", Category: models.CategoryStudio, Campus: "Como"},
	} {
		_, err := h.engine.Create(context.Background(), draft)
		assert.True(t, errors.Is(err, models.ErrValidation), "%+v: %v", draft, err)
	}
	h.engine.Wait()

	assert.Equal(t, before, h.session.PostIts())
	assert.Zero(t, remote.count("upsert"))
}

func TestCreateKeptWhenRemoteFails(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)
	remote.setErr(&remote.upsertErr, models.ErrRemoteUnavailable)

	p, err := h.engine.Create(context.Background(), models.Draft{Content: "x", Category: models.CategorySport, Campus: models.CampusLeonardo})
	require.NoError(t, err)
	h.engine.Wait()

	assert.True(t, h.session.Has(p.ID))
	assert.Contains(t, ids(h.cache.stored()), p.ID)
	assert.False(t, h.engine.BackendOnline())
}

func TestMove(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)

	require.NoError(t, h.engine.Move(context.Background(), "a", 300, -40))
	h.engine.Wait()

	p, ok := h.session.Find("a")
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 300, Y: 0}, p.Position)
	assert.Equal(t, models.Position{X: 300, Y: 0}, h.cache.stored()[0].Position)
	assert.Equal(t, 1, remote.count("position"))
	assert.Zero(t, remote.count("upsert"))
}

func TestMoveKeptWhenRemoteFails(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)
	remote.setErr(&remote.positionErr, models.ErrRemoteUnavailable)

	require.NoError(t, h.engine.Move(context.Background(), "a", 42, 24))
	h.engine.Wait()

	p, _ := h.session.Find("a")
	assert.Equal(t, models.Position{X: 42, Y: 24}, p.Position)
	assert.False(t, h.engine.BackendOnline())
}

func TestMoveUpsertsUnknownRecord(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)
	remote.setErr(&remote.positionErr, models.ErrRemoteRejected)

	require.NoError(t, h.engine.Move(context.Background(), "a", 5, 6))
	h.engine.Wait()

	require.Len(t, remote.upserts, 1)
	assert.Equal(t, models.Position{X: 5, Y: 6}, remote.upserts[0].Position)
	assert.True(t, h.engine.BackendOnline())
}

func TestMutationsOnUnknownID(t *testing.T) {
	h := loaded(t, newFakeRemote(postIt("a", models.CategoryStudio, 1)))
	ctx := context.Background()

	assert.True(t, errors.Is(h.engine.Move(ctx, "zzz", 1, 1), errors.NotFound))
	_, err := h.engine.ToggleParticipation(ctx, "zzz")
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.True(t, errors.Is(h.engine.Delete(ctx, "zzz"), errors.NotFound))
}

func TestToggleParticipationCounter(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 4))
	h := loaded(t, remote)

	joined, err := h.engine.ToggleParticipation(context.Background(), "a")
	require.NoError(t, err)
	h.engine.Wait()
	assert.True(t, joined)
	p, _ := h.session.Find("a")
	assert.Equal(t, 5, p.Participants)
	assert.Nil(t, p.ParticipantIDs)
	assert.Equal(t, []string{"a"}, h.cache.storedJoined())

	joined, err = h.engine.ToggleParticipation(context.Background(), "a")
	require.NoError(t, err)
	h.engine.Wait()
	assert.False(t, joined)
	p, _ = h.session.Find("a")
	assert.Equal(t, 4, p.Participants)
	assert.Equal(t, 2, remote.count("upsert"))
}

func TestToggleParticipationRollsBack(t *testing.T) {
	tracked := postIt("t", models.CategoryStudio, 0)
	tracked.ParticipantIDs = []string{"A", "B", testUser}
	remote := newFakeRemote(tracked)
	h := loaded(t, remote)
	require.True(t, h.session.IsJoined("t"))
	remote.setErr(&remote.upsertErr, models.ErrRemoteUnavailable)

	joined, err := h.engine.ToggleParticipation(context.Background(), "t")
	require.NoError(t, err)
	assert.False(t, joined)
	h.engine.Wait()

	p, _ := h.session.Find("t")
	assert.Equal(t, 3, p.Participants)
	assert.Equal(t, []string{"A", "B", testUser}, p.ParticipantIDs)
	assert.True(t, h.session.IsJoined("t"))
	assert.Equal(t, []string{"t"}, h.cache.storedJoined())
	assert.Equal(t, 3, h.cache.stored()[0].Participants)
	assert.False(t, h.engine.BackendOnline())
}

func TestApplyParticipation(t *testing.T) {
	for _, tc := range []struct {
		name      string
		ids       []string
		count     int
		join      bool
		wantIDs   []string
		wantCount int
	}{
		{"counter join", nil, 3, true, nil, 4},
		{"counter leave", nil, 3, false, nil, 2},
		{"counter never negative", nil, 0, false, nil, 0},
		{"zero count starts tracking", nil, 0, true, []string{"me"}, 1},
		{"tracked join", []string{"A", "B", "C"}, 3, true, []string{"A", "B", "C", "me"}, 4},
		{"tracked join is idempotent", []string{"me"}, 1, true, []string{"me"}, 1},
		{"tracked leave", []string{"A", "me"}, 2, false, []string{"A"}, 1},
		{"tracked leave last", []string{"me"}, 1, false, nil, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := models.PostIt{Participants: tc.count, ParticipantIDs: tc.ids}
			applyParticipation(&p, "me", tc.join)
			assert.Equal(t, tc.wantIDs, p.ParticipantIDs)
			assert.Equal(t, tc.wantCount, p.Participants)
		})
	}
}

func TestDelete(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1), postIt("b", models.CategorySport, 1))
	h := loaded(t, remote)
	_, err := h.engine.ToggleParticipation(context.Background(), "a")
	require.NoError(t, err)
	h.engine.Wait()

	require.NoError(t, h.engine.Delete(context.Background(), "a"))
	h.engine.Wait()

	assert.Equal(t, []string{"b"}, ids(h.session.PostIts()))
	assert.Empty(t, h.session.Joined())
	assert.Equal(t, []string{"b"}, ids(h.cache.stored()))
	assert.Equal(t, 1, remote.count("delete"))
}

func TestDeleteKeptWhenRemoteFails(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1))
	h := loaded(t, remote)
	remote.setErr(&remote.deleteErr, models.ErrRemoteUnavailable)

	require.NoError(t, h.engine.Delete(context.Background(), "a"))
	h.engine.Wait()

	assert.False(t, h.session.Has("a"))
	assert.Empty(t, h.cache.stored())
	assert.False(t, h.engine.BackendOnline())
}

func TestJoinThenFailedLeaveRollsBack(t *testing.T) {
	tracked := postIt("t", models.CategoryStudio, 3)
	tracked.ParticipantIDs = []string{"A", "B", "C"}
	remote := newFakeRemote(tracked)
	h := loaded(t, remote)

	joined, err := h.engine.ToggleParticipation(context.Background(), "t")
	require.NoError(t, err)
	require.True(t, joined)
	h.engine.Wait()
	p, _ := h.session.Find("t")
	require.Equal(t, 4, p.Participants)
	require.Equal(t, []string{"A", "B", "C", testUser}, p.ParticipantIDs)

	remote.setErr(&remote.upsertErr, models.ErrRemoteUnavailable)
	joined, err = h.engine.ToggleParticipation(context.Background(), "t")
	require.NoError(t, err)
	assert.False(t, joined)
	h.engine.Wait()

	p, _ = h.session.Find("t")
	assert.Equal(t, 4, p.Participants)
	assert.Equal(t, []string{"A", "B", "C", testUser}, p.ParticipantIDs)
	assert.True(t, h.session.IsJoined("t"))
	assert.Equal(t, []string{"t"}, h.cache.storedJoined())
	assert.Equal(t, 4, h.cache.stored()[0].Participants)
	assert.False(t, h.engine.BackendOnline())
}

func TestToggleKeepsParticipantInvariant(t *testing.T) {
	tracked := postIt("t", models.CategoryStudio, 2)
	tracked.ParticipantIDs = []string{"A", "B"}
	remote := newFakeRemote(tracked)
	h := loaded(t, remote)

	for step := range 12 {
		fail := step%3 == 2
		var err error
		if fail {
			err = models.ErrRemoteUnavailable
		}
		remote.setErr(&remote.upsertErr, err)
		before, _ := h.session.Find("t")
		wasJoined := h.session.IsJoined("t")

		_, err = h.engine.ToggleParticipation(context.Background(), "t")
		require.NoError(t, err)
		h.engine.Wait()

		p, _ := h.session.Find("t")
		assert.GreaterOrEqual(t, p.Participants, 0, "step %d", step)
		assert.Equal(t, len(p.ParticipantIDs), p.Participants, "step %d", step)
		assert.Equal(t, p.HasParticipant(testUser), h.session.IsJoined("t"), "step %d", step)
		if fail {
			assert.Equal(t, before, p, "step %d", step)
			assert.Equal(t, wasJoined, h.session.IsJoined("t"), "step %d", step)
		} else {
			assert.NotEqual(t, wasJoined, h.session.IsJoined("t"), "step %d", step)
		}
	}
}

// Запись удалена, пока вызов участия еще идет: после сбоя членство не
// возвращается.
func TestFailedToggleOnDeletedPostIt(t *testing.T) {
	remote := newFakeRemote(postIt("a", models.CategoryStudio, 1), postIt("b", models.CategorySport, 1))
	h := loaded(t, remote)
	remote.setErr(&remote.upsertErr, models.ErrRemoteUnavailable)
	release := make(chan struct{})
	remote.beforeUpsert = func() { <-release }

	joined, err := h.engine.ToggleParticipation(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, joined)
	require.NoError(t, h.engine.Delete(context.Background(), "a"))
	close(release)
	h.engine.Wait()

	assert.False(t, h.session.Has("a"))
	assert.False(t, h.session.IsJoined("a"))
	assert.Empty(t, h.session.Joined())
	assert.Empty(t, h.cache.storedJoined())
	assert.Equal(t, []string{"b"}, ids(h.cache.stored()))
}

func TestOfflineContinuity(t *testing.T) {
	remote := newFakeRemote()
	failAll(remote)
	cache := &memCache{}
	start := postIt("5", models.CategoryStudio, 1)
	start.Position = models.Position{X: 100, Y: 100}
	cache.SavePostIts([]models.PostIt{start})
	h := newHarness(t, remote, cache)
	ctx := context.Background()

	consistent := func(step string) {
		t.Helper()
		h.engine.Wait()
		assert.False(t, h.engine.BackendOnline(), step)
		stored := cache.stored()
		assert.Equal(t, ids(h.session.PostIts()), ids(stored), step)
		assert.Len(t, SanitizePostIts(stored), len(stored), step)
		for _, p := range stored {
			assert.GreaterOrEqual(t, p.Position.X, 0.0, step)
			assert.GreaterOrEqual(t, p.Position.Y, 0.0, step)
		}
		assert.Equal(t, h.session.Joined(), cache.storedJoined(), step)
	}

	report := h.engine.Load(ctx)
	assert.Equal(t, SourceCache, report.Source)
	consistent("load")

	created, err := h.engine.Create(ctx, models.Draft{Content: "x", Category: models.CategorySport, Campus: models.CampusLeonardo})
	require.NoError(t, err)
	consistent("create")

	require.NoError(t, h.engine.Move(ctx, "5", 250, 80))
	consistent("move")
	p, _ := h.session.Find("5")
	assert.Equal(t, models.Position{X: 250, Y: 80}, p.Position)
	assert.Equal(t, models.Position{X: 250, Y: 80}, cache.stored()[0].Position)

	joined, err := h.engine.ToggleParticipation(ctx, "5")
	require.NoError(t, err)
	assert.True(t, joined)
	consistent("participate")
	p, _ = h.session.Find("5")
	assert.Equal(t, 1, p.Participants)
	assert.False(t, h.session.IsJoined("5"))

	assert.Equal(t, []string{"5", created.ID}, ids(cache.stored()))
	assert.Equal(t, []string{created.ID}, cache.storedJoined())
	assert.ElementsMatch(t, []string{"5", created.ID}, cache.storedPending().Upserts)
}
