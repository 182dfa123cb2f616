// Package remote - тонкий HTTP-клиент удаленного хранилища пост-итов.
// Клиент не повторяет запросы и не знает о локальном кэше: он только
// переводит сбои в типизированные ошибки.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/loggo"

	"connectme/models"
)

var logger = loggo.GetLogger("connectme.remote")

// DefaultTimeout - таймаут одного запроса, если не задан другой.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 64 * 1024

// Rand - источник случайных чисел для позиций записей без координат.
type Rand interface {
	Float64() float64
}

// Client выполняет CRUD и пакетные операции над удаленным хранилищем.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	timeout time.Duration
	rand    Rand
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (например, в тестах). Таймаут из
// WithTimeout применяется к копии клиента независимо от порядка опций.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout задает таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRand задает источник случайных позиций.
func WithRand(r Rand) Option {
	return func(c *Client) { c.rand = r }
}

// New создает клиент для базового адреса, например https://host/functions/v1/server.
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: DefaultTimeout},
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

type postItResponse struct {
	Success bool               `json:"success"`
	PostIt  *models.WireRecord `json:"postIt"`
}

// Health проверяет доступность хранилища.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// FetchAll возвращает все записи. Позиции нормализуются: отсутствующие или
// некорректные заменяются случайными в пределах начальной области.
func (c *Client) FetchAll(ctx context.Context) ([]models.WireRecord, error) {
	var resp struct {
		PostIts []json.RawMessage `json:"postIts"`
	}
	if err := c.do(ctx, http.MethodGet, "/postits", nil, &resp); err != nil {
		return nil, err
	}
	records, dropped := models.ParseWireRecords(resp.PostIts)
	if dropped > 0 {
		logger.Warningf("dropped %d unreadable post-its from remote store", dropped)
	}
	for i := range records {
		c.normalizePosition(&records[i])
	}
	return records, nil
}

// UpsertOne создает или заменяет запись по id.
func (c *Client) UpsertOne(ctx context.Context, p models.PostIt) (models.PostIt, error) {
	return c.postItCall(ctx, http.MethodPost, "/postits", p, p)
}

// UpsertBatch сохраняет коллекцию одним запросом. Для вызывающего
// операция атомарна: при ошибке считается, что не сохранено ничего.
func (c *Client) UpsertBatch(ctx context.Context, postIts []models.PostIt) error {
	if postIts == nil {
		postIts = []models.PostIt{}
	}
	var resp struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/postits/batch", postIts, &resp); err != nil {
		return err
	}
	logger.Debugf("batch upsert stored %d post-its", resp.Count)
	return nil
}

// UpdatePosition меняет только координаты записи.
func (c *Client) UpdatePosition(ctx context.Context, id string, x, y float64) (models.PostIt, error) {
	body := models.Position{X: x, Y: y}
	return c.postItCall(ctx, http.MethodPut, "/postits/"+url.PathEscape(id)+"/position", body, models.PostIt{ID: id, Position: body})
}

// UpdateColor меняет только цвет записи.
func (c *Client) UpdateColor(ctx context.Context, id, color string) (models.PostIt, error) {
	body := map[string]string{"color": color}
	return c.postItCall(ctx, http.MethodPut, "/postits/"+url.PathEscape(id)+"/color", body, models.PostIt{ID: id, Color: color})
}

// UpdateParticipants меняет счетчик участников на delta.
func (c *Client) UpdateParticipants(ctx context.Context, id string, delta int) (models.PostIt, error) {
	body := map[string]int{"delta": delta}
	return c.postItCall(ctx, http.MethodPut, "/postits/"+url.PathEscape(id)+"/participants", body, models.PostIt{ID: id})
}

// DeleteOne удаляет запись.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/postits/"+url.PathEscape(id), nil, nil)
}

// postItCall выполняет запрос, отвечающий {success, postIt}. Если сервер
// не вернул запись, возвращается fallback.
func (c *Client) postItCall(ctx context.Context, method, path string, body any, fallback models.PostIt) (models.PostIt, error) {
	var resp postItResponse
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return models.PostIt{}, err
	}
	if resp.PostIt == nil {
		return fallback, nil
	}
	c.normalizePosition(resp.PostIt)
	p, ok := resp.PostIt.Sanitize()
	if !ok {
		return models.PostIt{}, fmt.Errorf("%w: %s %s: malformed post-it in response", models.ErrRemoteUnavailable, method, path)
	}
	return p, nil
}

func (c *Client) normalizePosition(rec *models.WireRecord) {
	if rec.Position.Valid() {
		return
	}
	rec.Position = models.At(100+c.rand.Float64()*300, 100+c.rand.Float64()*200)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding %s %s: %v", models.ErrRemoteRejected, method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: building %s %s: %v", models.ErrRemoteRejected, method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debugf("%s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: %s %s: %v", models.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(method, path, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %v", models.ErrRemoteUnavailable, method, path, err)
	}
	return nil
}
