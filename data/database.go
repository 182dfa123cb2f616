package data

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	_ "github.com/mattn/go-sqlite3" // Драйвер SQLite, импортируется для побочных эффектов (регистрации драйвера)
)

var logger = loggo.GetLogger("connectme.data")

// MemoryPath открывает БД в памяти. Удобно для тестов и одноразовых запусков.
const MemoryPath = ":memory:"

// resolveDbPath определяет путь к файлу БД.
// Относительные пути считаются от текущей рабочей директории.
func resolveDbPath(path string) (string, error) {
	if path == MemoryPath || filepath.IsAbs(path) {
		return path, nil
	}
	currentWorkDir, err := os.Getwd()
	if err != nil {
		return "", errors.Annotate(err, "failed to get current working directory")
	}
	return filepath.Join(currentWorkDir, path), nil
}

// Open открывает файл SQLite, проверяет подключение и применяет схему.
func Open(path string) (*sqlx.DB, error) {
	dataSourceName, err := resolveDbPath(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if dataSourceName != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dataSourceName), 0o755); err != nil {
			return nil, errors.Annotatef(err, "creating directory for %s", dataSourceName)
		}
	}
	logger.Debugf("using database file at: %s", dataSourceName)

	// Добавляем ?_loc=auto для автоматического определения формата времени
	db, err := sqlx.Connect("sqlite3", dataSourceName+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect to database %s", dataSourceName)
	}
	if dataSourceName == MemoryPath {
		// Каждое подключение к :memory: - отдельная БД
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "failed to ping database")
	}

	if _, err = db.Exec(GetSchema()); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "failed to execute schema")
	}
	logger.Debugf("database schema applied successfully")
	return db, nil
}
