// Package config загружает настройки из окружения и файла .env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("connectme.config")

// Config - настройки клиента и эталонного сервера.
type Config struct {
	Server ServerConfig
	Client ClientConfig
	Redis  RedisConfig
	// LogConfig - спецификация уровней loggo, например "<root>=INFO;connectme.syncengine=DEBUG".
	LogConfig string
}

// ServerConfig - эталонный сервер хранилища.
type ServerConfig struct {
	Port      string
	BasePath  string
	DBPath    string
	JWTSecret string
}

// ClientConfig - клиентская часть: кэш, адрес хранилища, пользователь.
type ClientConfig struct {
	CachePath     string
	RemoteURL     string
	AnonKey       string
	RemoteTimeout time.Duration
	WatchInterval time.Duration
	Matricola     string
}

// RedisConfig - канал изменений. Пустой Addr отключает его.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	// Subscribe - подписывать клиента на изменения (команда watch).
	Subscribe bool
}

// DefaultBasePath - путь, под которым хранилище доступно на сервере.
const DefaultBasePath = "/functions/v1/server"

// DefaultJWTSecret годится только для локальной разработки.
const DefaultJWTSecret = "connectme-dev-secret"

// Load читает .env (если есть) и переменные окружения.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file found, using environment variables")
	}
	port := getEnv("PORT", "8080")

	cfg := &Config{
		Server: ServerConfig{
			Port:      port,
			BasePath:  getEnv("BASE_PATH", DefaultBasePath),
			DBPath:    getEnv("DB_PATH", "./data/postits.db"),
			JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),
		},
		Client: ClientConfig{
			CachePath:     getEnv("CACHE_PATH", "./data/connectme_cache.db"),
			RemoteURL:     getEnv("REMOTE_URL", "http://localhost:"+port+DefaultBasePath),
			AnonKey:       getEnv("ANON_KEY", ""),
			RemoteTimeout: getDuration("REMOTE_TIMEOUT", 10*time.Second),
			WatchInterval: getDuration("WATCH_INTERVAL", 15*time.Second),
			Matricola:     getEnv("CONNECTME_MATRICOLA", ""),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getInt("REDIS_DB", 0),
			Subscribe: getBool("REDIS_SUBSCRIBE", true),
		},
		LogConfig: getEnv("LOG_CONFIG", "<root>=INFO"),
	}
	if cfg.Server.JWTSecret == DefaultJWTSecret {
		logger.Warningf("JWT_SECRET is not set, using the development secret")
	}
	return cfg
}

// ConfigureLogging применяет LogConfig к loggo.
func (c *Config) ConfigureLogging() error {
	return loggo.ConfigureLoggers(c.LogConfig)
}

// getEnv возвращает значение переменной или значение по умолчанию.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		logger.Warningf("ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration принимает "10s", "1m" или просто число секунд.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logger.Warningf("ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}
