package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/datalog-viewer/backend/internal/api"
	"github.com/datalog-viewer/backend/internal/config"
	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/samples"
	"github.com/datalog-viewer/backend/internal/session"
	"github.com/datalog-viewer/backend/internal/storage"
	"github.com/datalog-viewer/backend/internal/watch"
)

const defaultConfigHint = config.DefaultConfigFile + " next to the binary"

func newServeCommand(version, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API. Settings come from the XML config file, which is
created with defaults on first run. PORT, DATA_DIR and DATALOG_WATCH
override the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return errors.Wrap(err, "loading configuration")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, configPath, version, buildTime)
		},
	}
}

func resolveConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "locating executable")
	}
	return filepath.Join(filepath.Dir(exePath), config.DefaultConfigFile), nil
}

func runServer(ctx context.Context, cfg *config.AppConfig, configPath, version, buildTime string) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return errors.Wrap(err, "creating directories")
	}

	if cfg.Fields.DefinitionsFile != "" {
		n, err := fieldtype.GetGlobalRegistry().LoadFile(cfg.Fields.DefinitionsFile)
		if err != nil {
			return errors.Wrap(err, "loading field types")
		}
		fmt.Printf("[Fields] Loaded %d field types from %s\n", n, cfg.Fields.DefinitionsFile)
	}

	sampleSet := samples.NewSet()
	if cfg.Fields.SamplesFile != "" {
		set, err := samples.LoadFile(cfg.Fields.SamplesFile)
		if err != nil {
			return errors.Wrap(err, "loading samples")
		}
		sampleSet = set
	}

	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory)
	if err != nil {
		return errors.Wrap(err, "initializing storage")
	}

	var recent api.RecentList
	if cfg.Storage.EnablePersistence {
		kv, err := storage.NewSQLiteKV(cfg.Storage.KVDatabase)
		if err != nil {
			return errors.Wrap(err, "opening key-value store")
		}
		defer kv.Close()
		recent = storage.NewRecentFiles(kv)
	}

	var archive storage.Archive
	if cfg.Storage.EnableArchive {
		duck, err := storage.NewDuckStore(cfg.Storage.ArchiveDatabase, storage.DuckOptions{
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			Threads:     cfg.Advanced.DuckDBThreads,
		})
		if err != nil {
			return errors.Wrap(err, "opening archive")
		}
		defer duck.Close()
		archive = duck
	}

	sessionMgr := session.NewManager(archive)
	if interval := cfg.CleanupInterval(); interval > 0 {
		sessionMgr.StartCleanup(ctx, interval, cfg.SessionTimeout())
	}

	if cfg.Watch.Path != "" {
		if err := startWatch(ctx, sessionMgr, cfg); err != nil {
			fmt.Printf("Warning: failed to watch %s: %v\n", cfg.Watch.Path, err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		Timeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:          fileStore,
		SessionMgr:     sessionMgr,
		Recent:         recent,
		Samples:        sampleSet,
		Version:        version,
		WSMaxMessageKB: cfg.Advanced.WebSocketMaxMessageSize,
	}))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, version, buildTime)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server stopped")
		}
		return nil
	case <-ctx.Done():
		fmt.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Wrap(e.Shutdown(shutdownCtx), "shutting down")
	}
}

// startWatch opens the configured log and feeds later versions of it to the
// session's update detector.
func startWatch(ctx context.Context, sessionMgr *session.Manager, cfg *config.AppConfig) error {
	source := watch.FileSource{Path: cfg.Watch.Path}
	raw, err := source.ReadRaw()
	if err != nil {
		return err
	}

	sess, err := sessionMgr.Open(ctx, filepath.Base(cfg.Watch.Path), "", raw)
	if err != nil {
		return err
	}

	w := watch.New(cfg.Watch.Path, func(raw string) {
		// keep the watched log from being cleaned up while it is followed
		sessionMgr.TouchSession(sess.ID)
		if _, err := sessionMgr.CheckUpdate(sess.ID, raw); err != nil {
			fmt.Printf("[Watch] %v\n", err)
		}
	})
	if d := cfg.WatchDebounce(); d > 0 {
		w.Debounce = d
	}

	go func() {
		if err := w.Run(ctx); err != nil {
			fmt.Printf("[Watch] Stopped: %v\n", err)
		}
	}()

	fmt.Printf("[Watch] Following %s as log %s\n", cfg.Watch.Path, sess.ID)
	return nil
}

func printBanner(cfg *config.AppConfig, configPath, version, buildTime string) {
	watching := cfg.Watch.Path
	if watching == "" {
		watching = "(off)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Datalog Viewer Server                           ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", version)
	fmt.Printf("║  Build Time: %-45s║\n", buildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("║  Watching:  %-46s║\n", watching)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
