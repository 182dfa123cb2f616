package syncengine

import (
	"context"
	"strings"

	"connectme/models"
)

// DerivedRule описывает поле, значение которого выводится из других полей
// записи. Reconcile находит записи с устаревшим значением и исправляет их
// в хранилище.
type DerivedRule struct {
	Name string
	// Expected возвращает ожидаемое значение; false - правило к записи не применимо.
	Expected func(p models.PostIt) (string, bool)
	Current  func(p models.PostIt) string
	Set      func(p *models.PostIt, value string)
	// Push сохраняет значение в хранилище.
	Push func(ctx context.Context, remote RemoteStore, id, value string) error
}

func (r DerivedRule) stale(p models.PostIt) (string, bool) {
	expected, ok := r.Expected(p)
	if !ok || strings.EqualFold(r.Current(p), expected) {
		return "", false
	}
	return expected, true
}

// ColorRule приводит цвет записи к каноническому цвету ее категории.
var ColorRule = DerivedRule{
	Name: "color",
	Expected: func(p models.PostIt) (string, bool) {
		return models.CanonicalColor(p.Category)
	},
	Current: func(p models.PostIt) string { return p.Color },
	Set:     func(p *models.PostIt, value string) { p.Color = value },
	Push: func(ctx context.Context, remote RemoteStore, id, value string) error {
		_, err := remote.UpdateColor(ctx, id, value)
		return err
	},
}

// ReconcileResult - итог одного прохода Reconcile.
type ReconcileResult struct {
	Stale   int
	Updated int
	Failed  int
}

// Reconcile исправляет устаревшие значения правила по одной записи. Неудачная
// запись откатывается к прежнему значению и будет повторена при следующей
// загрузке. Если хотя бы одна запись сохранена, коллекция перечитывается из
// хранилища. Повторный проход по согласованной коллекции ничего не пишет.
func (e *Engine) Reconcile(ctx context.Context, rule DerivedRule) ReconcileResult {
	var res ReconcileResult
	type fix struct{ id, value string }
	var fixes []fix
	for _, p := range e.session.PostIts() {
		if value, ok := rule.stale(p); ok {
			fixes = append(fixes, fix{p.ID, value})
		}
	}
	res.Stale = len(fixes)
	if res.Stale == 0 {
		return res
	}
	logger.Infof("reconciling %s on %d post-its", rule.Name, res.Stale)

	for _, f := range fixes {
		before, _, ok := e.session.Update(f.id, func(p *models.PostIt) { rule.Set(p, f.value) })
		if !ok {
			continue
		}
		if err := rule.Push(ctx, e.remote, f.id, f.value); err != nil {
			logger.Warningf("failed to update %s of %s: %v", rule.Name, f.id, err)
			e.session.Update(f.id, func(p *models.PostIt) { rule.Set(p, rule.Current(before)) })
			e.setOnline(false)
			res.Failed++
			continue
		}
		res.Updated++
	}
	e.persist()
	logger.Infof("%s reconciled: %d updated, %d failed", rule.Name, res.Updated, res.Failed)

	if res.Updated > 0 {
		e.refresh(ctx)
	}
	return res
}

// refresh перечитывает коллекцию из хранилища после записи.
func (e *Engine) refresh(ctx context.Context) {
	records, err := e.remote.FetchAll(ctx)
	if err != nil {
		logger.Warningf("refresh after reconcile failed: %v", err)
		e.setOnline(false)
		return
	}
	postIts := Sanitize(records)
	if len(postIts) == 0 {
		return
	}
	// Неотправленные локальные изменения не затираются.
	merged, _, _ := mergePending(postIts, e.session.PostIts(), e.pendingChanges())
	e.adopt(merged)
}
