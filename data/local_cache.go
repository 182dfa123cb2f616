package data

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/juju/clock"

	"connectme/models"
)

// Ключи локального кэша.
const (
	PostItsKey       = "connectme_postits"
	JoinedKey        = "connectme_joined"
	SyncStatusKey    = "connectme_sync_status"
	ActiveSectionKey = "connectme_active_section"
	PendingKey       = "connectme_pending"
)

// LocalCache - долговременное хранилище клиента. Ошибки хранилища
// логируются и никогда не возвращаются: запись может просто не случиться.
type LocalCache struct {
	kv    *KV
	clock clock.Clock
}

// NewLocalCache создает кэш поверх kv. nil kv ведет себя как отключенное хранилище.
func NewLocalCache(kv *KV, clk clock.Clock) *LocalCache {
	if clk == nil {
		clk = clock.WallClock
	}
	return &LocalCache{kv: kv, clock: clk}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStorageUnavailable, op, err)
}

// LoadPostIts возвращает последнюю сохраненную коллекцию или false, если ее нет.
func (c *LocalCache) LoadPostIts() ([]models.WireRecord, bool) {
	var items []json.RawMessage
	if !c.loadJSON(PostItsKey, &items) || items == nil {
		return nil, false
	}
	records, dropped := models.ParseWireRecords(items)
	if dropped > 0 {
		logger.Warningf("dropped %d unreadable post-its from local cache", dropped)
	}
	logger.Debugf("loaded %d post-its from local cache", len(records))
	return records, true
}

// SavePostIts перезаписывает коллекцию и время последней синхронизации в одной транзакции.
func (c *LocalCache) SavePostIts(postIts []models.PostIt) {
	if postIts == nil {
		postIts = []models.PostIt{}
	}
	payload, err := json.Marshal(postIts)
	if err != nil {
		logger.Errorf("failed to encode post-its: %v", err)
		return
	}
	stamp := c.clock.Now().UTC().Format(time.RFC3339Nano)
	err = c.kv.MSet(
		KVEntry{Key: PostItsKey, Value: string(payload)},
		KVEntry{Key: SyncStatusKey, Value: stamp},
	)
	if err != nil {
		logger.Errorf("failed to save post-its to local cache: %v", storageError("save post-its", err))
		return
	}
	logger.Debugf("saved %d post-its to local cache", len(postIts))
}

// LoadJoinedIDs возвращает id пост-итов, к которым присоединился пользователь.
func (c *LocalCache) LoadJoinedIDs() ([]string, bool) {
	var ids []string
	if !c.loadJSON(JoinedKey, &ids) || ids == nil {
		return nil, false
	}
	return ids, true
}

// SaveJoinedIDs перезаписывает список присоединений.
func (c *LocalCache) SaveJoinedIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	c.saveJSON(JoinedKey, ids)
}

// LoadPending возвращает неподтвержденные хранилищем изменения.
func (c *LocalCache) LoadPending() (models.PendingChanges, bool) {
	var pending models.PendingChanges
	if !c.loadJSON(PendingKey, &pending) {
		return models.PendingChanges{}, false
	}
	return pending, true
}

// SavePending перезаписывает список неподтвержденных изменений.
func (c *LocalCache) SavePending(pending models.PendingChanges) {
	c.saveJSON(PendingKey, pending)
}

// LoadActiveSection возвращает последний открытый раздел приложения.
func (c *LocalCache) LoadActiveSection() (string, bool) {
	value, ok, err := c.kv.Get(ActiveSectionKey)
	if err != nil {
		logger.Errorf("failed to read active section: %v", storageError("load section", err))
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// SaveActiveSection запоминает открытый раздел.
func (c *LocalCache) SaveActiveSection(section string) {
	if err := c.kv.Set(ActiveSectionKey, section); err != nil {
		logger.Errorf("failed to persist active section: %v", storageError("save section", err))
	}
}

// LastSync возвращает время последнего сохранения коллекции.
func (c *LocalCache) LastSync() (time.Time, bool) {
	value, ok, err := c.kv.Get(SyncStatusKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	stamp, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

func (c *LocalCache) loadJSON(key string, target any) bool {
	value, ok, err := c.kv.Get(key)
	if err != nil {
		logger.Errorf("failed to load %s: %v", key, storageError("load", err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		logger.Errorf("failed to parse %s from local cache: %v", key, err)
		return false
	}
	return true
}

func (c *LocalCache) saveJSON(key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Errorf("failed to encode %s: %v", key, err)
		return
	}
	if err := c.kv.Set(key, string(payload)); err != nil {
		logger.Errorf("failed to save %s: %v", key, storageError("save", err))
	}
}
