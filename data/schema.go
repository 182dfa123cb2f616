package data

// Одна таблица ключ-значение используется и локальным кэшем клиента,
// и справочным сервером удаленного хранилища (ключи postit:<id>).
const kvSchema = `
CREATE TABLE IF NOT EXISTS KVStore (
    Key TEXT PRIMARY KEY,
    Value TEXT NOT NULL, -- JSON
    UpdatedAt DATETIME NOT NULL
);
`

// GetSchema возвращает SQL-схему хранилища.
func GetSchema() string {
	return kvSchema
}
