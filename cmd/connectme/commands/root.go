package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"

	"connectme/appstate"
	"connectme/config"
	"connectme/data"
	"connectme/models"
	"connectme/remote"
	"connectme/state"
	"connectme/syncengine"
)

var logger = loggo.GetLogger("connectme.cli")

var (
	// Глобальные флаги, перекрывают окружение
	remoteURL string
	anonKey   string
	cachePath string
	matricola string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "connectme",
	Short: "Connect-me - bacheca dei post-it del campus",
	Long: `Connect-me keeps a local copy of the campus post-it board in sync with
the shared remote store. Every command loads the board first: from the remote
store when it is reachable, from the local cache otherwise.`,
	SilenceUsage: true,
}

// Execute запускает корневую команду.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "Remote store URL (default REMOTE_URL)")
	rootCmd.PersistentFlags().StringVar(&anonKey, "anon-key", "", "Anonymous access key (default ANON_KEY)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Local cache database (default CACHE_PATH)")
	rootCmd.PersistentFlags().StringVar(&matricola, "matricola", "", "Student number of the session user")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// app - собранный клиент для одной команды.
type app struct {
	cfg        *config.Config
	db         *sqlx.DB
	cache      *data.LocalCache
	engine     *syncengine.Engine
	controller *appstate.Controller
}

// newApp читает настройки и собирает кэш, клиент хранилища, движок и контроллер.
func newApp() (*app, error) {
	cfg := config.Load()
	if remoteURL != "" {
		cfg.Client.RemoteURL = remoteURL
	}
	if anonKey != "" {
		cfg.Client.AnonKey = anonKey
	}
	if cachePath != "" {
		cfg.Client.CachePath = cachePath
	}
	if matricola != "" {
		cfg.Client.Matricola = matricola
	}
	if verbose {
		cfg.LogConfig = "<root>=DEBUG"
	} else if os.Getenv("LOG_CONFIG") == "" {
		cfg.LogConfig = "<root>=WARNING"
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return nil, errors.Annotate(err, "LOG_CONFIG")
	}

	db, err := data.Open(cfg.Client.CachePath)
	if err != nil {
		// Без кэша клиент работает, но ничего не переживет перезапуск.
		logger.Warningf("local cache unavailable: %v", err)
		db = nil
	}
	var kv *data.KV
	if db != nil {
		kv = data.NewKV(db)
	}
	cache := data.NewLocalCache(kv, nil)

	user := models.DefaultUser()
	if cfg.Client.Matricola != "" {
		user.Matricola = cfg.Client.Matricola
	}

	engine, err := syncengine.New(syncengine.Config{
		Session: state.New(user),
		Cache:   cache,
		Remote:  remote.New(cfg.Client.RemoteURL, cfg.Client.AnonKey, remote.WithTimeout(cfg.Client.RemoteTimeout)),
	})
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, errors.Trace(err)
	}
	return &app{
		cfg:        cfg,
		db:         db,
		cache:      cache,
		engine:     engine,
		controller: appstate.New(engine, cache),
	}, nil
}

// start загружает доску и сообщает, откуда она взята.
func (a *app) start(ctx context.Context) syncengine.LoadReport {
	report := a.controller.Start(ctx)
	describeLoad(report)
	return report
}

// close дожидается фоновых запросов к хранилищу и закрывает кэш.
func (a *app) close() {
	a.controller.Wait()
	if a.db != nil {
		a.db.Close()
	}
}

// withApp собирает клиент, загружает доску и выполняет fn.
func withApp(fn func(ctx context.Context, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a.start(ctx)
		return fn(ctx, a)
	}
}
