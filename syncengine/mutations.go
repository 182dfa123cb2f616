package syncengine

import (
	"context"
	"math"
	"slices"
	"strconv"

	"github.com/juju/errors"

	"connectme/models"
)

// Начальная область, в которой появляются новые пост-иты.
const (
	spawnX, spawnWidth  = 100, 300
	spawnY, spawnHeight = 100, 200
)

// Create создает пост-ит из черновика. Запись сразу попадает в сессию и
// кэш; сохранение в хранилище идет в фоне и при сбое не откатывается:
// запись остается неподтвержденной до следующей синхронизации.
// Автор становится первым участником.
func (e *Engine) Create(ctx context.Context, draft models.Draft) (models.PostIt, error) {
	if err := draft.Validate(); err != nil {
		return models.PostIt{}, err
	}
	now := e.clock.Now()
	user := e.session.User().Matricola
	color, _ := models.CanonicalColor(draft.Category)

	p := models.PostIt{
		ID:             e.nextID(now.UnixMilli()),
		Title:          draft.Title,
		Content:        draft.Content,
		Category:       draft.Category,
		Campus:         draft.Campus,
		Date:           draft.Date,
		CreatedAt:      isoTime(now),
		Participants:   1,
		ParticipantIDs: []string{user},
		Position: models.Position{
			X: spawnX + e.rand.Float64()*spawnWidth,
			Y: spawnY + e.rand.Float64()*spawnHeight,
		},
		Color: color,
	}
	e.session.Put(p)
	e.session.SetMembership(p.ID, true)
	e.persist()
	logger.Infof("created post-it %s (%s, %s)", p.ID, p.Category, p.Campus)

	e.goRemote(ctx, "create "+p.ID, pendingUpsert(p.ID), func(ctx context.Context) error {
		_, err := e.remote.UpsertOne(ctx, p)
		return err
	}, nil)
	return p, nil
}

// nextID возвращает id из миллисекунд часов, уникальный в пределах сессии.
func (e *Engine) nextID(millis int64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if millis <= e.lastID {
		millis = e.lastID + 1
	}
	for e.session.Has(strconv.FormatInt(millis, 10)) {
		millis++
	}
	e.lastID = millis
	return strconv.FormatInt(millis, 10)
}

// Move перемещает пост-ит. Отрицательные координаты обрезаются до нуля.
// Локальное положение при сбое хранилища сохраняется.
func (e *Engine) Move(ctx context.Context, id string, x, y float64) error {
	x, y = clampCoord(x), clampCoord(y)
	_, after, ok := e.session.Update(id, func(p *models.PostIt) {
		p.Position = models.Position{X: x, Y: y}
	})
	if !ok {
		return errors.NotFoundf("post-it %q", id)
	}
	e.persist()

	e.goRemote(ctx, "move "+id, pendingUpsert(id), func(ctx context.Context) error {
		_, err := e.remote.UpdatePosition(ctx, id, x, y)
		if errors.Is(err, models.ErrRemoteRejected) {
			// Хранилище не знает запись (например, создание не дошло) - сохраняем целиком.
			logger.Debugf("position update for %s rejected, upserting whole post-it", id)
			_, err = e.remote.UpsertOne(ctx, after)
		}
		return err
	}, nil)
	return nil
}

func clampCoord(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// ToggleParticipation присоединяет пользователя к пост-иту или отсоединяет
// его. Возвращает новое состояние членства. При сбое хранилища запись и
// JoinedSet возвращаются к состоянию до вызова.
func (e *Engine) ToggleParticipation(ctx context.Context, id string) (bool, error) {
	user := e.session.User().Matricola
	wasJoined := e.session.IsJoined(id)
	join := !wasJoined

	before, after, ok := e.session.Update(id, func(p *models.PostIt) {
		applyParticipation(p, user, join)
	})
	if !ok {
		return wasJoined, errors.NotFoundf("post-it %q", id)
	}
	e.session.SetMembership(id, join)
	e.persist()
	logger.Infof("participation in %s: joined=%v participants=%d", id, join, after.Participants)

	e.goRemote(ctx, "participation "+id, change{}, func(ctx context.Context) error {
		_, err := e.remote.UpsertOne(ctx, after)
		return err
	}, func(error) {
		_, _, ok := e.session.Update(id, func(p *models.PostIt) {
			p.Participants = before.Participants
			p.ParticipantIDs = slices.Clone(before.ParticipantIDs)
		})
		if !ok {
			// Запись удалена, пока шел вызов: членство не возвращаем.
			logger.Debugf("participation in %s not rolled back, post-it is gone", id)
			return
		}
		e.session.SetMembership(id, wasJoined)
		e.persist()
		logger.Infof("participation in %s rolled back", id)
	})
	return join, nil
}

// applyParticipation меняет участников. Если список ведется (или счетчик
// нулевой при присоединении), счетчик равен длине списка; иначе меняется
// только счетчик, не опускаясь ниже нуля.
func applyParticipation(p *models.PostIt, user string, join bool) {
	if p.TracksParticipants() || (join && p.Participants == 0) {
		ids := slices.DeleteFunc(slices.Clone(p.ParticipantIDs), func(id string) bool { return id == user })
		if join {
			ids = append(ids, user)
		}
		if len(ids) == 0 {
			ids = nil
		}
		p.ParticipantIDs = ids
		p.Participants = len(ids)
		return
	}
	if join {
		p.Participants++
	} else {
		p.Participants = max(p.Participants-1, 0)
	}
}

// Delete удаляет пост-ит. Локальное удаление при сбое хранилища сохраняется.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if _, ok := e.session.Remove(id); !ok {
		return errors.NotFoundf("post-it %q", id)
	}
	e.session.SetMembership(id, false)
	e.persist()
	logger.Infof("deleted post-it %s", id)

	e.goRemote(ctx, "delete "+id, pendingDelete(id), func(ctx context.Context) error {
		err := e.remote.DeleteOne(ctx, id)
		if errors.Is(err, models.ErrRemoteRejected) {
			// Записи в хранилище нет - результат тот же.
			return nil
		}
		return err
	}, nil)
	return nil
}
