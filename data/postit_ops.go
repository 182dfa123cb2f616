package data

import (
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"connectme/models"
)

// PostItKeyPrefix - префикс ключей пост-итов в хранилище сервера.
const PostItKeyPrefix = "postit:"

// PostItKey возвращает ключ записи.
func PostItKey(id string) string {
	return PostItKeyPrefix + id
}

// Document - запись пост-ита в том виде, в каком ее прислал клиент.
// Сервер схему не проверяет и хранит неизвестные поля.
type Document map[string]any

// ID возвращает строковый id документа.
func (d Document) ID() (string, bool) {
	id, ok := d["id"].(string)
	return id, ok && id != ""
}

// Wire переводит документ в WireRecord.
func (d Document) Wire() (models.WireRecord, error) {
	var rec models.WireRecord
	payload, err := json.Marshal(d)
	if err != nil {
		return rec, errors.Trace(err)
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return rec, errors.Trace(err)
	}
	return rec, nil
}

// PostItStore - хранилище пост-итов эталонного сервера поверх KV.
type PostItStore struct {
	kv *KV
}

// NewPostItStore создает хранилище.
func NewPostItStore(kv *KV) *PostItStore {
	return &PostItStore{kv: kv}
}

// GetAllPostIts возвращает все документы в порядке первой записи.
// Поврежденные значения пропускаются.
func (s *PostItStore) GetAllPostIts() ([]Document, error) {
	entries, err := s.kv.GetByPrefix(PostItKeyPrefix)
	if err != nil {
		return nil, errors.Annotate(err, "GetAllPostIts")
	}
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		var doc Document
		if err := json.Unmarshal([]byte(entry.Value), &doc); err != nil || doc == nil {
			logger.Warningf("GetAllPostIts: пропущено поврежденное значение %q", entry.Key)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// GetPostIt возвращает документ по id.
func (s *PostItStore) GetPostIt(id string) (Document, error) {
	value, ok, err := s.kv.Get(PostItKey(id))
	if err != nil {
		return nil, errors.Annotate(err, "GetPostIt")
	}
	if !ok {
		return nil, errors.NotFoundf("post-it %q", id)
	}
	var doc Document
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil, errors.Annotatef(err, "GetPostIt: поврежденное значение %q", id)
	}
	return doc, nil
}

func encodeDocument(doc Document) (KVEntry, error) {
	id, ok := doc.ID()
	if !ok {
		return KVEntry{}, errors.NotValidf("post-it without id")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return KVEntry{}, errors.NotValidf("post-it %q: %v", id, err)
	}
	return KVEntry{Key: PostItKey(id), Value: string(payload)}, nil
}

// SavePostIt создает или заменяет документ.
func (s *PostItStore) SavePostIt(doc Document) error {
	entry, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := s.kv.Set(entry.Key, entry.Value); err != nil {
		return errors.Annotate(err, "SavePostIt")
	}
	logger.Debugf("сохранен %s", entry.Key)
	return nil
}

// SavePostIts сохраняет документы одной транзакцией: либо все, либо ничего.
func (s *PostItStore) SavePostIts(docs []Document) error {
	entries := make([]KVEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := encodeDocument(doc)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if err := s.kv.MSet(entries...); err != nil {
		return errors.Annotate(err, "SavePostIts")
	}
	logger.Debugf("сохранено %d пост-итов", len(entries))
	return nil
}

// UpdatePostIt изменяет документ в транзакции. fn может вернуть ошибку, тогда изменения отменяются.
func (s *PostItStore) UpdatePostIt(id string, fn func(doc Document) error) (Document, error) {
	var updated Document
	err := s.kv.WithTx(func(tx *sqlx.Tx) error {
		doc, err := getDocumentWithTx(tx, id)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		doc["id"] = id
		entry, err := encodeDocument(doc)
		if err != nil {
			return err
		}
		if err := SetWithTx(tx, entry); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return updated, nil
}

func getDocumentWithTx(tx *sqlx.Tx, id string) (Document, error) {
	value, ok, err := GetWithTx(tx, PostItKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NotFoundf("post-it %q", id)
	}
	var doc Document
	if err := json.Unmarshal([]byte(value), &doc); err != nil || doc == nil {
		return nil, errors.Errorf("поврежденное значение %q", id)
	}
	return doc, nil
}

// DeletePostIt удаляет документ и сообщает, существовал ли он.
func (s *PostItStore) DeletePostIt(id string) (bool, error) {
	var existed bool
	err := s.kv.WithTx(func(tx *sqlx.Tx) error {
		var err error
		existed, err = DeleteWithTx(tx, PostItKey(id))
		return err
	})
	if err != nil {
		return false, errors.Annotate(err, "DeletePostIt")
	}
	return existed, nil
}
