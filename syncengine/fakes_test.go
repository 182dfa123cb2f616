package syncengine

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"connectme/models"
	"connectme/state"
)

const testUser = "10123456"

var testNow = time.Date(2025, time.December, 15, 10, 0, 0, 0, time.UTC)

// fakeRemote - хранилище в памяти с подсчетом вызовов и настраиваемыми сбоями.
type fakeRemote struct {
	mu      sync.Mutex
	records []models.WireRecord
	calls   map[string]int

	healthErr   error
	fetchErr    error
	upsertErr   error
	batchErr    error
	positionErr error
	colorErr    error
	deleteErr   error

	upserts      []models.PostIt
	batches      [][]models.PostIt
	colors       map[string]string
	beforeBatch  func()
	beforeUpsert func()
}

func newFakeRemote(postIts ...models.PostIt) *fakeRemote {
	r := &fakeRemote{calls: map[string]int{}, colors: map[string]string{}}
	for _, p := range postIts {
		r.records = append(r.records, p.Wire())
	}
	return r
}

func (r *fakeRemote) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRemote) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls["upsert"] + r.calls["batch"] + r.calls["position"] + r.calls["color"] + r.calls["delete"]
}

func (r *fakeRemote) setErr(target *error, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*target = err
}

func (r *fakeRemote) put(p models.PostIt) {
	for i, rec := range r.records {
		if rec.ID.Value == p.ID {
			r.records[i] = p.Wire()
			return
		}
	}
	r.records = append(r.records, p.Wire())
}

func (r *fakeRemote) find(id string) (int, bool) {
	for i, rec := range r.records {
		if rec.ID.Value == id {
			return i, true
		}
	}
	return -1, false
}

func (r *fakeRemote) Health(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["health"]++
	return r.healthErr
}

func (r *fakeRemote) FetchAll(ctx context.Context) ([]models.WireRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["fetch"]++
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return slices.Clone(r.records), nil
}

func (r *fakeRemote) UpsertOne(ctx context.Context, p models.PostIt) (models.PostIt, error) {
	if r.beforeUpsert != nil {
		r.beforeUpsert()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["upsert"]++
	if r.upsertErr != nil {
		return models.PostIt{}, r.upsertErr
	}
	r.upserts = append(r.upserts, p.Clone())
	r.put(p)
	return p, nil
}

func (r *fakeRemote) UpsertBatch(ctx context.Context, postIts []models.PostIt) error {
	if r.beforeBatch != nil {
		r.beforeBatch()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["batch"]++
	if r.batchErr != nil {
		return r.batchErr
	}
	r.batches = append(r.batches, slices.Clone(postIts))
	for _, p := range postIts {
		r.put(p)
	}
	return nil
}

func (r *fakeRemote) UpdatePosition(ctx context.Context, id string, x, y float64) (models.PostIt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["position"]++
	if r.positionErr != nil {
		return models.PostIt{}, r.positionErr
	}
	i, ok := r.find(id)
	if !ok {
		return models.PostIt{}, models.ErrRemoteRejected
	}
	r.records[i].Position = models.At(x, y)
	p, _ := r.records[i].Sanitize()
	return p, nil
}

func (r *fakeRemote) UpdateColor(ctx context.Context, id, color string) (models.PostIt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["color"]++
	if r.colorErr != nil {
		return models.PostIt{}, r.colorErr
	}
	i, ok := r.find(id)
	if !ok {
		return models.PostIt{}, models.ErrRemoteRejected
	}
	r.colors[id] = color
	r.records[i].Color = color
	p, _ := r.records[i].Sanitize()
	return p, nil
}

func (r *fakeRemote) DeleteOne(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["delete"]++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	i, ok := r.find(id)
	if !ok {
		return models.ErrRemoteRejected
	}
	r.records = slices.Delete(r.records, i, i+1)
	return nil
}

// memCache - LocalCache в памяти.
type memCache struct {
	mu        sync.Mutex
	postIts   []models.PostIt
	hasData   bool
	joined     []string
	hasJoined  bool
	pending    models.PendingChanges
	hasPending bool
	saves      int
}

func (c *memCache) LoadPostIts() ([]models.WireRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasData {
		return nil, false
	}
	out := make([]models.WireRecord, len(c.postIts))
	for i, p := range c.postIts {
		out[i] = p.Wire()
	}
	return out, true
}

func (c *memCache) SavePostIts(postIts []models.PostIt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postIts = slices.Clone(postIts)
	c.hasData = true
	c.saves++
}

func (c *memCache) LoadJoinedIDs() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.joined), c.hasJoined
}

func (c *memCache) SaveJoinedIDs(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = slices.Clone(ids)
	c.hasJoined = true
}

func (c *memCache) LoadPending() (models.PendingChanges, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.hasPending
}

func (c *memCache) SavePending(pending models.PendingChanges) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = pending
	c.hasPending = true
}

func (c *memCache) storedPending() models.PendingChanges {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *memCache) stored() []models.PostIt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.postIts)
}

func (c *memCache) storedJoined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.joined)
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type harness struct {
	engine  *Engine
	session *state.Session
	remote  *fakeRemote
	cache   *memCache
	clock   *testclock.Clock
	phases  []Phase
}

func newHarness(t *testing.T, remote *fakeRemote, cache *memCache) *harness {
	t.Helper()
	if cache == nil {
		cache = &memCache{}
	}
	user := models.DefaultUser()
	user.Matricola = testUser
	h := &harness{
		session: state.New(user),
		remote:  remote,
		cache:   cache,
		clock:   testclock.NewClock(testNow),
	}
	engine, err := New(Config{
		Session: h.session,
		Cache:   cache,
		Remote:  remote,
		Clock:   h.clock,
		Rand:    fixedRand(0.5),
		OnPhase: func(p Phase) { h.phases = append(h.phases, p) },
	})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func postIt(id string, category models.Category, participants int) models.PostIt {
	color, _ := models.CanonicalColor(category)
	return models.PostIt{
		ID:           id,
		Title:        "Post-it " + id,
		Content:      "content " + id,
		Category:     category,
		Campus:       models.CampusLeonardo,
		Participants: participants,
		Position:     models.Position{X: 10, Y: 20},
		Color:        color,
	}
}

func ids(postIts []models.PostIt) []string {
	out := make([]string, len(postIts))
	for i, p := range postIts {
		out[i] = p.ID
	}
	return out
}
