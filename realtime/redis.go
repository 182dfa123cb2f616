// Package realtime рассылает изменения пост-итов через Redis Pub/Sub:
// сервер публикует событие после каждой записи, клиенты применяют его к
// своей сессии.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/redis/go-redis/v9"

	"connectme/config"
	"connectme/models"
)

var logger = loggo.GetLogger("connectme.realtime")

// Channel - канал Redis с событиями об изменениях.
const Channel = "postits-changes"

// NewClient создает клиент Redis. Для пустого адреса возвращает nil.
func NewClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Publisher публикует события об изменениях.
type Publisher struct {
	client *redis.Client
}

// NewPublisher создает издателя. nil-клиент дает издателя, который ничего не делает.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish отправляет событие в канал.
func (p *Publisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Annotate(err, "encoding change event")
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return errors.Annotatef(err, "publishing %s %s", ev.Type, ev.ID)
	}
	return nil
}

// Subscriber получает события и передает их в apply.
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber создает подписчика.
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Run подписывается на канал и применяет события до отмены ctx.
func (s *Subscriber) Run(ctx context.Context, apply func(models.ChangeEvent)) error {
	if s.client == nil {
		return errors.NotValidf("nil redis client")
	}
	sub := s.client.Subscribe(ctx, Channel)
	defer sub.Close()

	// Ждем подтверждения подписки, чтобы ошибки соединения вернулись сразу.
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Annotatef(err, "subscribing to %s", Channel)
	}
	logger.Infof("subscribed to %s", Channel)
	return consume(ctx, sub.Channel(), apply)
}

func consume(ctx context.Context, messages <-chan *redis.Message, apply func(models.ChangeEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("subscription closed")
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				logger.Warningf("skipping change event: %v", err)
				continue
			}
			apply(ev)
		}
	}
}

func decodeEvent(payload string) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return models.ChangeEvent{}, errors.Annotate(err, "decoding change event")
	}
	switch ev.Type {
	case models.ChangeInsert, models.ChangeUpdate, models.ChangeDelete:
		return ev, nil
	}
	return models.ChangeEvent{}, errors.NotValidf("event type %q", ev.Type)
}
