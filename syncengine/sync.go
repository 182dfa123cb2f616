package syncengine

import (
	"context"
	"time"

	"github.com/juju/errors"

	"connectme/models"
)

// ResyncReport - итог слияния с хранилищем после восстановления связи.
type ResyncReport struct {
	Remote  int
	Pushed  int
	Deleted int
	Count   int
}

// Resync сливает локальную коллекцию с хранилищем. Неподтвержденные
// локальные изменения (созданные и перемещенные без связи записи) побеждают
// и отправляются одним пакетом, удаленные без связи записи удаляются и в
// хранилище. Для остальных записей побеждает версия хранилища.
func (e *Engine) Resync(ctx context.Context) (ResyncReport, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	records, err := e.remote.FetchAll(ctx)
	if err != nil {
		e.setOnline(false)
		return ResyncReport{}, errors.Annotate(err, "resync")
	}
	remote := Sanitize(records)
	merged, pushed, deleted, err := e.syncPending(ctx, remote)
	if err != nil {
		e.setOnline(false)
		return ResyncReport{}, errors.Annotate(err, "resync")
	}
	e.setOnline(true)
	e.adopt(merged)

	report := ResyncReport{Remote: len(remote), Pushed: pushed, Deleted: deleted, Count: len(merged)}
	logger.Infof("resync: %d from remote, %d pushed, %d deleted", report.Remote, report.Pushed, report.Deleted)
	return report, nil
}

// Watch периодически проверяет доступность хранилища и выполняет Resync,
// пока после сбоя связи состояние не сверено (NeedsResync). Флаг ставит
// любой неудачный вызов, снимает только успешная сверка, поэтому удачный
// фоновый вызов между проверками Resync не отменяет. Возвращается при
// отмене ctx.
func (e *Engine) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.NotValidf("watch interval %v", interval)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(interval):
		}
		if err := e.remote.Health(ctx); err != nil {
			if e.BackendOnline() {
				logger.Warningf("remote store went offline: %v", err)
			}
			e.setOnline(false)
			continue
		}
		if !e.NeedsResync() {
			continue
		}
		logger.Infof("remote store is reachable, resyncing local changes")
		if _, err := e.Resync(ctx); err != nil {
			logger.Warningf("resync failed: %v", err)
		}
	}
}

// Apply применяет событие об изменении, пришедшее от хранилища.
// Некорректные записи игнорируются.
func (e *Engine) Apply(ev models.ChangeEvent) {
	switch ev.Type {
	case models.ChangeInsert, models.ChangeUpdate:
		if ev.Record == nil {
			return
		}
		p, ok := ev.Record.Sanitize()
		if !ok {
			logger.Debugf("ignoring malformed %s event", ev.Type)
			return
		}
		// Локальная версия еще не отправлена и победит при сверке.
		if e.isUnsynced(p.ID) {
			logger.Debugf("ignoring %s event for unsaved post-it %s", ev.Type, p.ID)
			return
		}
		e.session.Put(p)
	case models.ChangeDelete:
		id := ev.ID
		if id == "" && ev.Record != nil {
			id = ev.Record.ID.Value
		}
		if _, ok := e.session.Remove(id); !ok {
			return
		}
		e.session.SetMembership(id, false)
	default:
		logger.Debugf("ignoring unknown event type %q", ev.Type)
		return
	}
	e.reconcileJoined()
	e.persist()
}
