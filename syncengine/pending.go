package syncengine

import (
	"context"
	"slices"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"connectme/models"
)

// changeKind - изменение записи, которое ждет подтверждения хранилища.
type changeKind int

const (
	changeNone changeKind = iota
	changeUpsert
	changeDelete
)

type change struct {
	id   string
	kind changeKind
}

func pendingUpsert(id string) change { return change{id: id, kind: changeUpsert} }
func pendingDelete(id string) change { return change{id: id, kind: changeDelete} }

// restorePending поднимает из кэша изменения, не дошедшие до хранилища в
// прошлых запусках.
func (e *Engine) restorePending() {
	pc, ok := e.cache.LoadPending()
	if !ok || pc.Empty() {
		return
	}
	e.mu.Lock()
	e.unsynced = set.NewStrings(pc.Upserts...)
	e.deleted = set.NewStrings(pc.Deletes...)
	e.stale = true
	e.mu.Unlock()
	logger.Infof("restored %d unsaved post-its and %d unsaved deletions", len(pc.Upserts), len(pc.Deletes))
}

func (e *Engine) track(ch change) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch ch.kind {
	case changeUpsert:
		e.unsynced.Add(ch.id)
		e.deleted.Remove(ch.id)
	case changeDelete:
		e.deleted.Add(ch.id)
		e.unsynced.Remove(ch.id)
	}
	e.inflight[ch.id]++
}

// settle завершает вызов по записи. Отметка снимается, только если вызов
// успешен и других незавершенных вызовов по этой записи нет.
func (e *Engine) settle(ch change, ok bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight[ch.id]--
	if e.inflight[ch.id] > 0 {
		return false
	}
	delete(e.inflight, ch.id)
	return ok && e.unmark(ch.id)
}

// unmark вызывается под e.mu.
func (e *Engine) unmark(id string) bool {
	changed := e.unsynced.Contains(id) || e.deleted.Contains(id)
	e.unsynced.Remove(id)
	e.deleted.Remove(id)
	return changed
}

func (e *Engine) pendingChanges() models.PendingChanges {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.PendingChanges{Upserts: e.unsynced.SortedValues(), Deletes: e.deleted.SortedValues()}
}

func (e *Engine) isUnsynced(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unsynced.Contains(id)
}

// NeedsResync сообщает, что после сбоя связи локальное состояние еще не
// сверено с хранилищем или есть неотправленные изменения.
func (e *Engine) NeedsResync() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stale || !e.unsynced.IsEmpty() || !e.deleted.IsEmpty()
}

// confirm снимает отметки, отправленные в хранилище, и флаг stale.
func (e *Engine) confirm(pc models.PendingChanges) {
	e.mu.Lock()
	for _, id := range slices.Concat(pc.Upserts, pc.Deletes) {
		if e.inflight[id] == 0 {
			e.unmark(id)
		}
	}
	e.stale = false
	e.mu.Unlock()
	e.persistPending()
}

// localPostIts - локальная версия коллекции: сессия, а до первой загрузки кэш.
func (e *Engine) localPostIts() []models.PostIt {
	if e.session.Len() > 0 {
		return e.session.PostIts()
	}
	if records, ok := e.cache.LoadPostIts(); ok {
		return Sanitize(records)
	}
	return nil
}

// mergePending накладывает неподтвержденные изменения на коллекцию
// хранилища. Для записей из pc.Upserts побеждает локальная версия (она же
// попадает в push), записи из pc.Deletes исключаются (и попадают в deletes).
// Порядок: записи хранилища, затем локальные, которых в хранилище нет.
func mergePending(remote, local []models.PostIt, pc models.PendingChanges) (merged, push []models.PostIt, deletes []string) {
	upserts := set.NewStrings(pc.Upserts...)
	tombstones := set.NewStrings(pc.Deletes...)
	localByID := make(map[string]models.PostIt, len(local))
	for _, p := range local {
		localByID[p.ID] = p
	}

	seen := idSet(remote)
	merged = make([]models.PostIt, 0, len(remote))
	for _, r := range remote {
		if tombstones.Contains(r.ID) {
			deletes = append(deletes, r.ID)
			continue
		}
		if l, ok := localByID[r.ID]; ok && upserts.Contains(r.ID) {
			push = append(push, l)
			merged = append(merged, l)
			continue
		}
		merged = append(merged, r)
	}
	for _, l := range local {
		if upserts.Contains(l.ID) && !seen.Contains(l.ID) {
			push = append(push, l)
			merged = append(merged, l)
		}
	}
	return merged, push, deletes
}

// syncPending сверяет коллекцию хранилища с неподтвержденными изменениями
// и отправляет их: записи одним пакетом, удаления по одному. Возвращает
// итоговую коллекцию. При ошибке локальные изменения в ней остаются и
// считаются неподтвержденными.
func (e *Engine) syncPending(ctx context.Context, remote []models.PostIt) (merged []models.PostIt, pushed, deleted int, err error) {
	pc := e.pendingChanges()
	var local []models.PostIt
	if len(pc.Upserts) > 0 {
		local = e.localPostIts()
	}
	merged, push, deletes := mergePending(remote, local, pc)

	if len(push) > 0 {
		if err := e.remote.UpsertBatch(ctx, push); err != nil {
			return merged, 0, 0, errors.Annotatef(err, "pushing %d local post-its", len(push))
		}
		logger.Infof("pushed %d post-its changed while offline", len(push))
	}
	for _, id := range deletes {
		// Записи уже нет в хранилище - результат тот же.
		if err := e.remote.DeleteOne(ctx, id); err != nil && !errors.Is(err, models.ErrRemoteRejected) {
			return merged, len(push), 0, errors.Annotatef(err, "deleting post-it %s", id)
		}
	}
	e.confirm(pc)
	return merged, len(push), len(deletes), nil
}
