package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"bizdesk/internal/api"
	"bizdesk/internal/clipboard"
	"bizdesk/internal/config"
	"bizdesk/internal/platform/logger"
	"bizdesk/internal/redis"
	"bizdesk/internal/service/workspace"
	"bizdesk/internal/storage"
	"bizdesk/internal/upload"
	"bizdesk/internal/worker"
)

// appContext holds what every command needs: config, logger and a seeded workspace.
type appContext struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	workspace *workspace.Service
}

func newAppContext(ctx context.Context, cmd *cli.Command) (*appContext, error) {
	if err := config.LoadEnv(cmd.String("env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})

	dbType := cmd.String("db")
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db, dbType); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	ws, err := workspace.NewService(db, cfg.BasicConfig.SecretKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init workspace: %w", err)
	}
	if !cfg.BasicConfig.SkipSeed {
		seeded, err := ws.Seed(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("seed workspace: %w", err)
		}
		if seeded {
			log.Info("workspace seeded with sample data")
		}
	}
	log.Debug("app context ready", "db", dbType)
	return &appContext{cfg: cfg, logger: log, db: db, workspace: ws}, nil
}

func (a *appContext) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	basic := app.cfg.BasicConfig

	var rdb *redis.Client
	if app.cfg.Redis.Enabled {
		rdb, err = redis.NewRedisClient(app.cfg)
		if err != nil {
			return fmt.Errorf("create redis client: %w", err)
		}
		defer rdb.Close()
	}

	scanInterval := basic.ExpiryScan()
	if scanInterval <= 0 {
		scanInterval = workspace.DefaultExpiryScanInterval
	}
	app.workspace.StartExpiryScanner(ctx, scanInterval)

	manager := worker.NewManager(app.workspace, worker.DispatcherConfig{
		MinWorkers:  basic.MinWorkers,
		MaxWorkers:  basic.MaxWorkers,
		QueueSize:   basic.QueueSize,
		IdleTimeout: basic.WorkerIdle(),
	}, worker.Options{
		Clipboard:       clipboard.System{},
		ClipboardExpiry: basic.ClipboardExpiryDuration(),
		Upload:          upload.Options{TickInterval: basic.UploadTick(), Logger: app.logger},
		Redis:           rdb,
		Logger:          app.logger,
	})
	defer manager.Shutdown()

	router := gin.Default()
	api.NewHandler(app.workspace, manager, app.logger).RegisterRoutes(router)

	srv := newHTTPServer(basic.ServerAddress, router, manager)
	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newHTTPServer closes every view as soon as shutdown starts. Open event
// streams only end when their view closes, so Shutdown would otherwise wait
// for them until its deadline.
func newHTTPServer(addr string, handler http.Handler, manager *worker.Manager) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	srv.RegisterOnShutdown(manager.Shutdown)
	return srv
}

func copyAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	field := cmd.String("field")
	text, err := app.workspace.ResolveSecret(ctx, field)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", field, err)
	}

	expiry := cmd.Duration("expiry")
	if expiry <= 0 {
		expiry = app.cfg.BasicConfig.ClipboardExpiryDuration()
	}
	helper := clipboard.NewHelper(clipboard.System{}, clipboard.Options{Expiry: expiry, Logger: app.logger})
	defer helper.Close()

	expired := make(chan struct{})
	err = helper.Copy(ctx, clipboard.CopyRequest{Text: text, FieldKey: field}, clipboard.Hooks{
		OnCommitted: func(key string) {
			fmt.Printf("copied %s (marked for %s)\n", key, helper.Expiry())
		},
		OnExpired: func(key string) {
			close(expired)
		},
	})
	if err != nil {
		return err
	}

	select {
	case <-expired:
		fmt.Printf("%s no longer marked as copied\n", field)
	case <-ctx.Done():
	}
	return nil
}

func uploadAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("at least one file is required")
	}
	files := make([]upload.FileDescriptor, 0, cmd.Args().Len())
	for _, path := range cmd.Args().Slice() {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		files = append(files, upload.FileDescriptor{Name: filepath.Base(path), Size: info.Size()})
	}

	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	folder := cmd.String("folder")
	if err := app.workspace.FolderExists(ctx, folder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("folder %q does not exist", folder)
		}
		return err
	}

	tick := cmd.Duration("tick")
	if tick <= 0 {
		tick = app.cfg.BasicConfig.UploadTick()
	}
	engine := upload.NewEngine(app.workspace, upload.Options{TickInterval: tick, Logger: app.logger})
	batch, err := engine.Start(ctx, upload.BatchRequest{
		EntityID: cmd.String("entity"),
		Folder:   folder,
		Files:    files,
		OnProgress: func(t upload.TaskSnapshot) {
			fmt.Printf("%-40s %8s %3d%%\n", t.FileName, t.SizeLabel, t.Progress)
		},
	})
	if err != nil {
		return err
	}

	docs, err := batch.Wait(context.Background())
	if errors.Is(err, upload.ErrUploadAborted) {
		fmt.Println("upload cancelled, no documents created")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %d document(s) to %s\n", len(docs), folder)
	listed, err := app.workspace.ListDocuments(ctx, folder)
	if err != nil {
		return err
	}
	for _, d := range listed {
		fmt.Printf("  %-40s %-6s %8s %s\n", d.Name, d.Type, d.Size, d.Date)
	}
	return nil
}

func entitiesAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.workspace.ListEntities(ctx)
	if err != nil {
		return err
	}
	for _, e := range list {
		flag := ""
		if e.NeedsAttention() {
			flag = "!"
		}
		fmt.Printf("%-4s %-28s %-14s %-8s %1s %s\n", e.ID, e.Name, e.Type, e.Status, flag, e.NextAction)
	}
	return nil
}
