package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/juju/errors"

	"connectme/data"
	"connectme/models"
)

const maxBodyBytes = 4 << 20

// ChangePublisher рассылает события об изменениях.
type ChangePublisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// PostItController обслуживает HTTP-контракт хранилища пост-итов.
type PostItController struct {
	store     *data.PostItStore
	publisher ChangePublisher
}

// NewPostItController создает контроллер. publisher может быть nil.
func NewPostItController(store *data.PostItStore, publisher ChangePublisher) *PostItController {
	return &PostItController{store: store, publisher: publisher}
}

// GetAllPostItsHandler - GET /postits.
func (c *PostItController) GetAllPostItsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := c.store.GetAllPostIts()
	if err != nil {
		respondStoreError(w, "GetAllPostIts", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"postIts": docs})
}

// UpsertPostItHandler - POST /postits, создает или заменяет запись.
func (c *PostItController) UpsertPostItHandler(w http.ResponseWriter, r *http.Request) {
	var doc data.Document
	if err := decodeBody(w, r, &doc); err != nil || doc == nil {
		respondError(w, http.StatusBadRequest, "Expected a post-it object", err)
		return
	}
	id, ok := doc.ID()
	if !ok {
		respondError(w, http.StatusBadRequest, "Post-it id is required", nil)
		return
	}
	kind := models.ChangeUpdate
	if _, err := c.store.GetPostIt(id); errors.Is(err, errors.NotFound) {
		kind = models.ChangeInsert
	}
	if err := c.store.SavePostIt(doc); err != nil {
		respondStoreError(w, "SavePostIt", err)
		return
	}
	c.publish(r.Context(), kind, id, doc)
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "postIt": doc})
}

// BatchUpsertHandler - POST /postits/batch, сохраняет массив записей атомарно.
func (c *PostItController) BatchUpsertHandler(w http.ResponseWriter, r *http.Request) {
	var docs []data.Document
	if err := decodeBody(w, r, &docs); err != nil || docs == nil {
		respondError(w, http.StatusBadRequest, "Expected an array of post-its", err)
		return
	}
	if err := c.store.SavePostIts(docs); err != nil {
		respondStoreError(w, "SavePostIts", err)
		return
	}
	for _, doc := range docs {
		id, _ := doc.ID()
		c.publish(r.Context(), models.ChangeUpdate, id, doc)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(docs)})
}

// UpdatePositionHandler - PUT /postits/{id}/position.
func (c *PostItController) UpdatePositionHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.X == nil || body.Y == nil {
		respondError(w, http.StatusBadRequest, "Expected {x, y}", err)
		return
	}
	c.update(w, r, "UpdatePosition", func(doc data.Document) error {
		doc["position"] = map[string]any{"x": *body.X, "y": *body.Y}
		return nil
	})
}

// UpdateColorHandler - PUT /postits/{id}/color.
func (c *PostItController) UpdateColorHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Color string `json:"color"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Color == "" {
		respondError(w, http.StatusBadRequest, "Expected {color}", err)
		return
	}
	c.update(w, r, "UpdateColor", func(doc data.Document) error {
		doc["color"] = body.Color
		return nil
	})
}

// UpdateParticipantsHandler - PUT /postits/{id}/participants, меняет счетчик на delta.
// Счетчик не опускается ниже нуля.
func (c *PostItController) UpdateParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta *int `json:"delta"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Delta == nil {
		respondError(w, http.StatusBadRequest, "Expected {delta}", err)
		return
	}
	c.update(w, r, "UpdateParticipants", func(doc data.Document) error {
		current, _ := doc["participants"].(float64)
		doc["participants"] = max(int(current)+*body.Delta, 0)
		return nil
	})
}

// DeletePostItHandler - DELETE /postits/{id}. Отсутствие записи ошибкой не считается.
func (c *PostItController) DeletePostItHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existed, err := c.store.DeletePostIt(id)
	if err != nil {
		respondStoreError(w, "DeletePostIt", err)
		return
	}
	if existed {
		c.publish(r.Context(), models.ChangeDelete, id, nil)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (c *PostItController) update(w http.ResponseWriter, r *http.Request, op string, fn func(doc data.Document) error) {
	id := mux.Vars(r)["id"]
	doc, err := c.store.UpdatePostIt(id, fn)
	if err != nil {
		respondStoreError(w, op, err)
		return
	}
	logger.Debugf("%s: post-it %s updated", op, id)
	c.publish(r.Context(), models.ChangeUpdate, id, doc)
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "postIt": doc})
}

// publish отправляет событие; ошибка доставки на ответ не влияет.
func (c *PostItController) publish(ctx context.Context, kind models.ChangeType, id string, doc data.Document) {
	if c.publisher == nil {
		return
	}
	ev := models.ChangeEvent{Type: kind, ID: id}
	if doc != nil {
		rec, err := doc.Wire()
		if err != nil {
			logger.Warningf("cannot publish %s %s: %v", kind, id, err)
			return
		}
		ev.Record = &rec
	}
	if err := c.publisher.Publish(ctx, ev); err != nil {
		logger.Warningf("failed to publish %s %s: %v", kind, id, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(target)
}
