package appstate_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectme/appstate"
	"connectme/data"
	"connectme/models"
	"connectme/state"
	"connectme/syncengine"
)

// memRemote - простейшее хранилище в памяти.
type memRemote struct {
	mu      sync.Mutex
	postIts []models.PostIt
	down    bool
}

func (r *memRemote) fail() error {
	if r.down {
		return models.ErrRemoteUnavailable
	}
	return nil
}

func (r *memRemote) Health(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fail()
}

func (r *memRemote) FetchAll(ctx context.Context) ([]models.WireRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return nil, err
	}
	out := make([]models.WireRecord, len(r.postIts))
	for i, p := range r.postIts {
		out[i] = p.Wire()
	}
	return out, nil
}

func (r *memRemote) upsert(p models.PostIt) {
	for i := range r.postIts {
		if r.postIts[i].ID == p.ID {
			r.postIts[i] = p
			return
		}
	}
	r.postIts = append(r.postIts, p)
}

func (r *memRemote) UpsertOne(ctx context.Context, p models.PostIt) (models.PostIt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return models.PostIt{}, err
	}
	r.upsert(p)
	return p, nil
}

func (r *memRemote) UpsertBatch(ctx context.Context, postIts []models.PostIt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return err
	}
	for _, p := range postIts {
		r.upsert(p)
	}
	return nil
}

func (r *memRemote) UpdatePosition(ctx context.Context, id string, x, y float64) (models.PostIt, error) {
	return models.PostIt{}, errors.New("not used")
}

func (r *memRemote) UpdateColor(ctx context.Context, id, color string) (models.PostIt, error) {
	return models.PostIt{}, errors.New("not used")
}

func (r *memRemote) DeleteOne(ctx context.Context, id string) error {
	return errors.New("not used")
}

type fixture struct {
	ctrl   *appstate.Controller
	cache  *data.LocalCache
	remote *memRemote
	path   string
}

func newFixture(t *testing.T, path string, remote *memRemote) *fixture {
	t.Helper()
	db, err := data.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := testclock.NewClock(time.Date(2025, time.December, 15, 10, 0, 0, 0, time.UTC))
	cache := data.NewLocalCache(data.NewKV(db), clk)
	engine, err := syncengine.New(syncengine.Config{
		Session: state.New(models.DefaultUser()),
		Cache:   cache,
		Remote:  remote,
		Clock:   clk,
	})
	require.NoError(t, err)
	return &fixture{ctrl: appstate.New(engine, cache), cache: cache, remote: remote, path: path}
}

func TestStartSeedsAndServesViews(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "cache.db"), &memRemote{})

	report := f.ctrl.Start(context.Background())

	assert.Equal(t, syncengine.SourceSeed, report.Source)
	assert.Equal(t, state.DefaultSection, f.ctrl.Section())
	assert.Len(t, f.ctrl.PostIts(), 45)
	assert.Len(t, f.ctrl.Recent(6), 6)
	assert.Len(t, f.ctrl.Recent(100), 45)
	for _, p := range f.ctrl.Filter(models.CategorySport, models.CampusBovisa) {
		assert.Equal(t, models.CategorySport, p.Category)
		assert.Equal(t, models.CampusBovisa, p.Campus)
	}
	assert.NotEmpty(t, f.ctrl.Filter(models.CategorySport, ""))
	assert.Empty(t, f.ctrl.Joined())
	assert.True(t, f.ctrl.BackendOnline())
}

func TestSessionSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	remote := &memRemote{}
	ctx := context.Background()

	first := newFixture(t, path, remote)
	first.ctrl.Start(ctx)
	require.NoError(t, first.ctrl.SetSection("agenda"))
	joined, err := first.ctrl.ToggleParticipation(ctx, "1")
	require.NoError(t, err)
	require.True(t, joined)
	first.ctrl.Wait()

	// Хранилище недоступно: все восстанавливается из кэша.
	remote.mu.Lock()
	remote.down = true
	remote.mu.Unlock()
	second := newFixture(t, path, remote)
	report := second.ctrl.Start(ctx)

	assert.Equal(t, syncengine.SourceCache, report.Source)
	assert.False(t, second.ctrl.BackendOnline())
	assert.Equal(t, "agenda", second.ctrl.Section())
	assert.True(t, second.ctrl.IsJoined("1"))
	require.Len(t, second.ctrl.Joined(), 1)
	assert.Equal(t, 5, second.ctrl.Joined()[0].Participants)
}

func TestSetSection(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "cache.db"), &memRemote{})

	assert.True(t, errors.Is(f.ctrl.SetSection("settings"), errors.NotValid))
	require.NoError(t, f.ctrl.SetSection("bacheca"))
	section, ok := f.cache.LoadActiveSection()
	require.True(t, ok)
	assert.Equal(t, "bacheca", section)
}

func TestCreateOfflineIsVisible(t *testing.T) {
	remote := &memRemote{down: true}
	f := newFixture(t, filepath.Join(t.TempDir(), "cache.db"), remote)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	p, err := f.ctrl.Create(ctx, models.Draft{Title: "Caffè", Content: "Pausa alle 10", Category: models.CategoryCoffeeBreak, Campus: models.CampusLeonardo})
	require.NoError(t, err)
	f.ctrl.Wait()

	assert.Equal(t, []models.PostIt{p}, f.ctrl.PostIts())
	assert.True(t, f.ctrl.IsJoined(p.ID))
	assert.False(t, f.ctrl.BackendOnline())

	_, err = f.ctrl.Create(ctx, models.Draft{Category: models.CategoryCoffeeBreak, Campus: models.CampusLeonardo})
	assert.True(t, errors.Is(err, models.ErrValidation))
}
