package syncengine

import (
	"context"

	"github.com/juju/collections/set"

	"connectme/models"
)

// Source - откуда взята коллекция при загрузке.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	// SourceReseed - хранилище было пустым, в него отправлен локальный кэш.
	SourceReseed Source = "reseed"
	// SourceSeed - хранилище и кэш пусты, использован стартовый набор.
	SourceSeed Source = "seed"
)

// LoadReport описывает результат одного цикла загрузки.
type LoadReport struct {
	Source Source
	Count  int
	Online bool
	// SeedFailed - пакетное сохранение стартового набора не удалось.
	SeedFailed bool
	Migrated   int
	// MigrationFailed - записи, которые остались с устаревшим значением.
	MigrationFailed int
	// Pushed и Deleted - отправленные локальные изменения прошлых сессий.
	Pushed  int
	Deleted int
}

// Load выполняет цикл загрузки: хранилище, при недоступности - кэш, при
// пустом хранилище - первичное наполнение, затем миграции. Load никогда
// не возвращает ошибку: сбои отражаются в BackendOnline и LoadReport.
func (e *Engine) Load(ctx context.Context) LoadReport {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.setOnline(true)
	e.enter(PhaseLoading)
	defer e.enter(PhaseIdle)

	records, err := e.remote.FetchAll(ctx)
	if err != nil {
		logger.Warningf("remote store unavailable, using local cache: %v", err)
		e.setOnline(false)
		return e.loadFromCache()
	}
	if len(records) == 0 {
		return e.seedRemote(ctx)
	}

	e.enter(PhaseReconciling)
	report := LoadReport{Source: SourceRemote}
	merged, pushed, deleted, err := e.syncPending(ctx, Sanitize(records))
	if err != nil {
		logger.Warningf("local changes were not saved, working offline: %v", err)
		e.setOnline(false)
	}
	report.Pushed, report.Deleted = pushed, deleted
	e.adopt(merged)
	logger.Infof("loaded %d post-its from remote store", e.session.Len())

	e.enter(PhaseMigrating)
	for _, rule := range e.rules {
		res := e.Reconcile(ctx, rule)
		report.Migrated += res.Updated
		report.MigrationFailed += res.Failed
	}
	report.Count = e.session.Len()
	report.Online = e.BackendOnline()
	return report
}

func (e *Engine) loadFromCache() LoadReport {
	report := LoadReport{Source: SourceCache}
	records, ok := e.cache.LoadPostIts()
	if !ok {
		logger.Infof("local cache is empty")
		report.Count = e.session.Len()
		return report
	}
	e.adopt(Sanitize(records))
	report.Count = e.session.Len()
	logger.Infof("loaded %d post-its from local cache", report.Count)
	return report
}

// seedRemote наполняет пустое хранилище: сначала локальным кэшем, если в
// нем что-то есть, иначе стартовым набором. Кэш пишется до обращения к сети.
func (e *Engine) seedRemote(ctx context.Context) LoadReport {
	e.enter(PhaseSeeding)
	report := LoadReport{Source: SourceReseed}
	pc := e.pendingChanges()

	var seed []models.PostIt
	if records, ok := e.cache.LoadPostIts(); ok {
		seed = Sanitize(records)
	}
	if len(seed) == 0 {
		seed = SanitizePostIts(e.seed(e.clock.Now()))
		report.Source = SourceSeed
	}
	e.adopt(seed)
	logger.Infof("remote store is empty, seeding %d post-its (%s)", len(seed), report.Source)

	if err := e.remote.UpsertBatch(ctx, e.session.PostIts()); err != nil {
		logger.Errorf("initial seed was not saved, working offline: %v", err)
		e.setOnline(false)
		report.SeedFailed = true
	} else {
		e.confirm(pc)
	}
	report.Count = e.session.Len()
	report.Online = e.BackendOnline()
	return report
}

// adopt заменяет коллекцию сессии, согласует JoinedSet и сохраняет кэш.
func (e *Engine) adopt(postIts []models.PostIt) {
	e.session.Replace(postIts)
	e.reconcileJoined()
	e.persist()
}

// reconcileJoined приводит JoinedSet к коллекции: id исчезнувших записей
// удаляются, для записей со списком участников членство определяется
// этим списком. При пустой коллекции JoinedSet не трогается.
func (e *Engine) reconcileJoined() {
	postIts := e.session.PostIts()
	if len(postIts) == 0 {
		return
	}
	user := e.session.User().Matricola
	current := set.NewStrings(e.session.Joined()...)
	next := set.NewStrings()
	for _, p := range postIts {
		if p.TracksParticipants() {
			if p.HasParticipant(user) {
				next.Add(p.ID)
			}
			continue
		}
		if current.Contains(p.ID) {
			next.Add(p.ID)
		}
	}
	if removed := current.Difference(next); !removed.IsEmpty() {
		logger.Debugf("dropped %d stale joined ids", removed.Size())
	}
	e.session.SetJoined(next.SortedValues())
}
