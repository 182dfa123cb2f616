package data

import (
	"database/sql"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
)

// KVEntry - одна запись хранилища ключ-значение.
type KVEntry struct {
	Key       string    `db:"Key"`
	Value     string    `db:"Value"`
	UpdatedAt time.Time `db:"UpdatedAt"`
}

// KV - хранилище ключ-значение поверх таблицы KVStore.
type KV struct {
	db *sqlx.DB
}

// NewKV оборачивает открытое подключение. nil означает отключенное хранилище.
func NewKV(db *sqlx.DB) *KV {
	return &KV{db: db}
}

// Upsert сохраняет rowid существующего ключа, поэтому порядок вставки стабилен.
const upsertQuery = `INSERT INTO KVStore (Key, Value, UpdatedAt) VALUES (:Key, :Value, :UpdatedAt)
	ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value, UpdatedAt = excluded.UpdatedAt`

func (kv *KV) available() error {
	if kv == nil || kv.db == nil {
		return errors.New("storage disabled")
	}
	return nil
}

// Get извлекает значение по ключу. Второй результат false, если ключа нет.
func (kv *KV) Get(key string) (string, bool, error) {
	if err := kv.available(); err != nil {
		return "", false, err
	}
	var entry KVEntry
	err := kv.db.Get(&entry, `SELECT Key, Value, UpdatedAt FROM KVStore WHERE Key = ?`, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil // Не найдено
		}
		return "", false, errors.Annotatef(err, "Get: ошибка получения ключа %q", key)
	}
	return entry.Value, true, nil
}

// Set создает или обновляет значение по ключу.
func (kv *KV) Set(key, value string) error {
	if err := kv.available(); err != nil {
		return err
	}
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	if _, err := kv.db.NamedExec(upsertQuery, entry); err != nil {
		return errors.Annotatef(err, "Set: ошибка записи ключа %q", key)
	}
	return nil
}

// MSet записывает несколько значений в одной транзакции: либо все, либо ничего.
// UpdatedAt у переданных записей проставляется заново.
func (kv *KV) MSet(entries ...KVEntry) error {
	if err := kv.available(); err != nil {
		return err
	}
	return kv.WithTx(func(tx *sqlx.Tx) error {
		now := time.Now()
		for _, entry := range entries {
			entry.UpdatedAt = now
			if err := SetWithTx(tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete удаляет ключ. Отсутствие ключа ошибкой не считается.
func (kv *KV) Delete(key string) error {
	if err := kv.available(); err != nil {
		return err
	}
	if _, err := kv.db.Exec(`DELETE FROM KVStore WHERE Key = ?`, key); err != nil {
		return errors.Annotatef(err, "Delete: ошибка удаления ключа %q", key)
	}
	return nil
}

// GetByPrefix возвращает все записи с ключом, начинающимся с prefix, в порядке вставки.
func (kv *KV) GetByPrefix(prefix string) ([]KVEntry, error) {
	if err := kv.available(); err != nil {
		return nil, err
	}
	var entries []KVEntry
	query := `SELECT Key, Value, UpdatedAt FROM KVStore WHERE substr(Key, 1, ?) = ? ORDER BY rowid`
	if err := kv.db.Select(&entries, query, utf8.RuneCountInString(prefix), prefix); err != nil {
		return nil, errors.Annotatef(err, "GetByPrefix: ошибка получения записей с префиксом %q", prefix)
	}
	return entries, nil
}

// --- Функции, работающие с транзакциями ---

// WithTx выполняет fn в транзакции и откатывает ее при ошибке или панике.
func (kv *KV) WithTx(fn func(tx *sqlx.Tx) error) (err error) {
	if err := kv.available(); err != nil {
		return err
	}
	tx, err := kv.db.Beginx()
	if err != nil {
		return errors.Annotate(err, "ошибка начала транзакции")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r) // снова паникуем
		} else if err != nil {
			tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Annotate(err, "ошибка фиксации транзакции")
	}
	return nil
}

// SetWithTx создает или обновляет значение в рамках транзакции.
func SetWithTx(tx *sqlx.Tx, entry KVEntry) error {
	if _, err := tx.NamedExec(upsertQuery, entry); err != nil {
		return errors.Annotatef(err, "SetWithTx: ошибка записи ключа %q", entry.Key)
	}
	return nil
}

// GetWithTx извлекает значение по ключу в рамках транзакции.
func GetWithTx(tx *sqlx.Tx, key string) (string, bool, error) {
	var entry KVEntry
	err := tx.Get(&entry, `SELECT Key, Value, UpdatedAt FROM KVStore WHERE Key = ?`, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errors.Annotatef(err, "GetWithTx: ошибка получения ключа %q", key)
	}
	return entry.Value, true, nil
}

// DeleteWithTx удаляет ключ в рамках транзакции и сообщает, существовал ли он.
func DeleteWithTx(tx *sqlx.Tx, key string) (bool, error) {
	result, err := tx.Exec(`DELETE FROM KVStore WHERE Key = ?`, key)
	if err != nil {
		return false, errors.Annotatef(err, "DeleteWithTx: ошибка удаления ключа %q", key)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}
