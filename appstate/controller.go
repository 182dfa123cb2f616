// Package appstate - контроллер состояния приложения: принимает намерения
// пользователя, передает их движку синхронизации и отдает срезы состояния
// для отображения.
package appstate

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"connectme/models"
	"connectme/state"
	"connectme/syncengine"
)

var logger = loggo.GetLogger("connectme.appstate")

// SectionStore хранит открытый раздел между запусками.
type SectionStore interface {
	LoadActiveSection() (string, bool)
	SaveActiveSection(section string)
}

// Controller связывает сессию, движок и хранилище раздела.
type Controller struct {
	engine   *syncengine.Engine
	session  *state.Session
	sections SectionStore
}

// New создает контроллер. Сессия берется из движка.
func New(engine *syncengine.Engine, sections SectionStore) *Controller {
	return &Controller{
		engine:   engine,
		session:  engine.Session(),
		sections: sections,
	}
}

// Start восстанавливает JoinedSet и раздел из кэша и выполняет загрузку.
func (c *Controller) Start(ctx context.Context) syncengine.LoadReport {
	c.engine.RestoreJoined()
	if section, ok := c.sections.LoadActiveSection(); ok && state.ValidSection(section) {
		c.session.SetActiveSection(section)
	}
	report := c.engine.Load(ctx)
	logger.Infof("started: %d post-its from %s, section %s", report.Count, report.Source, c.session.ActiveSection())
	return report
}

// Reload повторяет цикл загрузки.
func (c *Controller) Reload(ctx context.Context) syncengine.LoadReport {
	return c.engine.Load(ctx)
}

// Create публикует новый пост-ит.
func (c *Controller) Create(ctx context.Context, draft models.Draft) (models.PostIt, error) {
	return c.engine.Create(ctx, draft)
}

// Move перемещает пост-ит на доске.
func (c *Controller) Move(ctx context.Context, id string, x, y float64) error {
	return c.engine.Move(ctx, id, x, y)
}

// ToggleParticipation присоединяет пользователя к событию или отменяет участие.
func (c *Controller) ToggleParticipation(ctx context.Context, id string) (bool, error) {
	return c.engine.ToggleParticipation(ctx, id)
}

// Delete удаляет пост-ит.
func (c *Controller) Delete(ctx context.Context, id string) error {
	return c.engine.Delete(ctx, id)
}

// SetSection переключает раздел и сохраняет его, если он изменился.
func (c *Controller) SetSection(section string) error {
	if !state.ValidSection(section) {
		return errors.NotValidf("section %q", section)
	}
	if c.session.SetActiveSection(section) {
		c.sections.SaveActiveSection(section)
	}
	return nil
}

// Section возвращает открытый раздел.
func (c *Controller) Section() string {
	return c.session.ActiveSection()
}

// User возвращает профиль пользователя.
func (c *Controller) User() models.UserProfile {
	return c.session.User()
}

// PostIts возвращает всю коллекцию в порядке хранения.
func (c *Controller) PostIts() []models.PostIt {
	return c.session.PostIts()
}

// Recent возвращает первые n пост-итов (лента на главной).
func (c *Controller) Recent(n int) []models.PostIt {
	postIts := c.session.PostIts()
	if n < 0 || n >= len(postIts) {
		return postIts
	}
	return postIts[:n]
}

// Filter возвращает пост-иты доски с учетом фильтров. Пустое значение - без фильтра.
func (c *Controller) Filter(category models.Category, campus models.Campus) []models.PostIt {
	var out []models.PostIt
	for _, p := range c.session.PostIts() {
		if category != "" && p.Category != category {
			continue
		}
		if campus != "" && p.Campus != campus {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Joined возвращает пост-иты, к которым присоединился пользователь (агенда).
// Id, которых нет в коллекции, пропускаются.
func (c *Controller) Joined() []models.PostIt {
	var out []models.PostIt
	for _, p := range c.session.PostIts() {
		if c.session.IsJoined(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// IsJoined сообщает, присоединился ли пользователь к пост-иту.
func (c *Controller) IsJoined(id string) bool {
	return c.session.IsJoined(id)
}

// BackendOnline - индикатор связи с хранилищем.
func (c *Controller) BackendOnline() bool {
	return c.engine.BackendOnline()
}

// Wait дожидается фоновых сохранений.
func (c *Controller) Wait() {
	c.engine.Wait()
}
