// Package syncengine согласует состояние сессии с локальным кэшем и
// удаленным хранилищем при ненадежной связи: загрузка, первичное
// наполнение, миграция производных полей и оптимистичные изменения.
//
// Сбои удаленного хранилища никогда не доходят до вызывающего: они
// превращаются во флаг доступности бэкенда и работу по локальному кэшу.
// Наружу возвращаются только ошибки валидации и неизвестные id.
package syncengine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"connectme/models"
	"connectme/state"
)

var logger = loggo.GetLogger("connectme.syncengine")

// RemoteStore - операции удаленного хранилища, нужные движку.
// Каждая операция идемпотентна на уровне записи (upsert по id).
type RemoteStore interface {
	Health(ctx context.Context) error
	FetchAll(ctx context.Context) ([]models.WireRecord, error)
	UpsertOne(ctx context.Context, p models.PostIt) (models.PostIt, error)
	UpsertBatch(ctx context.Context, postIts []models.PostIt) error
	UpdatePosition(ctx context.Context, id string, x, y float64) (models.PostIt, error)
	UpdateColor(ctx context.Context, id, color string) (models.PostIt, error)
	DeleteOne(ctx context.Context, id string) error
}

// LocalCache - долговременное хранилище клиента. Методы не возвращают
// ошибок: запись может не состояться, и движок должен это переживать.
type LocalCache interface {
	LoadPostIts() ([]models.WireRecord, bool)
	SavePostIts(postIts []models.PostIt)
	LoadJoinedIDs() ([]string, bool)
	SaveJoinedIDs(ids []string)
	LoadPending() (models.PendingChanges, bool)
	SavePending(pending models.PendingChanges)
}

// Rand - источник случайных координат для новых пост-итов.
type Rand interface {
	Float64() float64
}

// Phase - состояние цикла загрузки.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseSeeding     Phase = "seeding"
	PhaseReconciling Phase = "reconciling"
	PhaseMigrating   Phase = "migrating"
)

// Config - зависимости движка.
type Config struct {
	Session *state.Session
	Cache   LocalCache
	Remote  RemoteStore

	// Clock по умолчанию - clock.WallClock.
	Clock clock.Clock
	// Rand по умолчанию - PCG, засеянный текущим временем.
	Rand Rand
	// Seed строит начальный набор для пустого хранилища. По умолчанию StarterPostIts.
	Seed func(now time.Time) []models.PostIt
	// Rules - производные поля, проверяемые после загрузки. По умолчанию ColorRule.
	Rules []DerivedRule
	// OnPhase вызывается при каждой смене фазы.
	OnPhase func(Phase)
}

// Validate проверяет обязательные зависимости.
func (c Config) Validate() error {
	if c.Session == nil {
		return errors.NotValidf("nil Session")
	}
	if c.Cache == nil {
		return errors.NotValidf("nil Cache")
	}
	if c.Remote == nil {
		return errors.NotValidf("nil Remote")
	}
	return nil
}

// Engine - движок синхронизации. Владеет флагом доступности бэкенда
// и протоколом оптимистичных изменений с откатом.
type Engine struct {
	session *state.Session
	cache   LocalCache
	remote  RemoteStore
	clock   clock.Clock
	rand    Rand
	seed    func(now time.Time) []models.PostIt
	rules   []DerivedRule
	onPhase func(Phase)

	mu     sync.Mutex
	phase  Phase
	online bool
	lastID int64
	// stale - был сбой обмена с хранилищем, и локальное состояние еще не
	// сверено с ним. Сбрасывается только успешной синхронизацией.
	stale bool
	// Неподтвержденные изменения и число незавершенных вызовов по id.
	unsynced set.Strings
	deleted  set.Strings
	inflight map[string]int

	loadMu    sync.Mutex
	persistMu sync.Mutex
	pending   sync.WaitGroup
}

// New создает движок.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	e := &Engine{
		session: cfg.Session,
		cache:   cfg.Cache,
		remote:  cfg.Remote,
		clock:   cfg.Clock,
		rand:    cfg.Rand,
		seed:    cfg.Seed,
		rules:   cfg.Rules,
		onPhase: cfg.OnPhase,
		phase:    PhaseIdle,
		online:   true,
		unsynced: set.NewStrings(),
		deleted:  set.NewStrings(),
		inflight: map[string]int{},
	}
	if e.clock == nil {
		e.clock = clock.WallClock
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewPCG(uint64(e.clock.Now().UnixNano()), 0xb0a4d))
	}
	if e.seed == nil {
		e.seed = StarterPostIts
	}
	if e.rules == nil {
		e.rules = []DerivedRule{ColorRule}
	}
	e.restorePending()
	return e, nil
}

// Session возвращает состояние, с которым работает движок.
func (e *Engine) Session() *state.Session {
	return e.session
}

// BackendOnline сообщает, был ли успешен последний обмен с хранилищем.
func (e *Engine) BackendOnline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

func (e *Engine) setOnline(online bool) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	if !online {
		e.stale = true
	}
	e.mu.Unlock()
	if changed {
		logger.Infof("backend online: %v", online)
	}
}

// Phase возвращает текущую фазу цикла загрузки.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) enter(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
	logger.Tracef("phase %s", p)
	if e.onPhase != nil {
		e.onPhase(p)
	}
}

// Wait блокируется до завершения всех фоновых вызовов хранилища.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// goRemote выполняет вызов хранилища в фоне. Вызывающий не ждет сеть:
// локальное состояние уже обновлено. ch отмечает изменение записи как
// неподтвержденное до успешного вызова (changeNone - не отмечать).
// При ошибке бэкенд помечается недоступным и вызывается onFailure
// (откат, если он нужен).
func (e *Engine) goRemote(ctx context.Context, op string, ch change, call func(ctx context.Context) error, onFailure func(err error)) {
	ctx = context.WithoutCancel(ctx)
	if ch.kind != changeNone {
		e.track(ch)
		e.persistPending()
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		err := call(ctx)
		if ch.kind != changeNone && e.settle(ch, err == nil) {
			e.persistPending()
		}
		if err != nil {
			logger.Warningf("%s: remote call failed: %v", op, err)
			e.setOnline(false)
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		logger.Debugf("%s: saved to remote store", op)
		e.setOnline(true)
	}()
}

// persist записывает коллекцию, JoinedSet и неподтвержденные изменения в
// кэш. Снимок и запись выполняются под одной блокировкой, чтобы старый
// снимок не перезаписал новый.
func (e *Engine) persist() {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.cache.SavePostIts(e.session.PostIts())
	e.cache.SaveJoinedIDs(e.session.Joined())
	e.cache.SavePending(e.pendingChanges())
}

func (e *Engine) persistPending() {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.cache.SavePending(e.pendingChanges())
}

// RestoreJoined восстанавливает JoinedSet из кэша.
func (e *Engine) RestoreJoined() {
	if ids, ok := e.cache.LoadJoinedIDs(); ok {
		e.session.SetJoined(ids)
		logger.Debugf("restored %d joined post-its", len(ids))
	}
}
