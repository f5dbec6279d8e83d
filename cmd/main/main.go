package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/azuridayo/tiptune/internal/appservices"
	"github.com/azuridayo/tiptune/internal/config"
	"github.com/azuridayo/tiptune/internal/databaseconn"
	"github.com/azuridayo/tiptune/internal/eventsapi"
	"github.com/azuridayo/tiptune/internal/history"
	"github.com/azuridayo/tiptune/internal/mediacache"
	"github.com/azuridayo/tiptune/internal/pipeline"
	"github.com/azuridayo/tiptune/internal/queue"
	"github.com/azuridayo/tiptune/internal/spotifyauth"
	"github.com/azuridayo/tiptune/internal/staticservices"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/websocket"
)

const (
	configPath        = "config.toml"
	queueSnapshotPath = "queue_state.json"
	historyPath       = "request_history.json"
)

func main() {
	if err := databaseconn.Migrate(); err != nil {
		log.Fatalln("database migration failed:", err)
	}

	app, err := NewApp()
	if err != nil {
		log.Fatalln(err)
	}
	log.Fatalln(app.Run())
}

type App struct {
	cfg        *config.Manager
	db         *sql.DB
	settings   *databaseconn.SettingsStore
	flow       *spotifyauth.Flow
	spotify    *staticservices.SpotifyService
	player     playbackReader
	ytdlp      *staticservices.YTDLPService
	store      *queue.Store
	reconciler *queue.Reconciler
	hist       *history.Log
	enricher   *mediacache.Enricher
	events     *eventsapi.Client
	pipe       *pipeline.Pipeline
	overlay    *appservices.OBSOverlayService

	clients          map[*websocket.Conn]struct{}
	clientsMu        sync.Mutex
	clientsBroadcast chan string

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := log.Default()

	cfgManager, err := config.NewManager(configPath, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cfgManager.Current()

	db, err := databaseconn.NewDBConnection()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open database: %w", err)
	}
	settings := databaseconn.NewSettingsStore(db)

	flow := spotifyauth.NewFlow(func() (string, string) {
		c := cfgManager.Current()
		return c.Spotify.ClientID, c.Spotify.RedirectURL
	}, settings, logger)

	deviceID, err := settings.LoadPlaybackDeviceID()
	if err != nil || deviceID == "" {
		deviceID = cfg.Spotify.PlaybackDeviceID
	}
	spotify := staticservices.NewSpotifyService(flow, deviceID, logger)
	ytdlp := staticservices.NewYTDLPService(logger)
	extractor := staticservices.NewTitleExtractor(cfgManager.Current, logger)

	store := queue.NewStore(queueSnapshotPath, spotify, logger)
	hist := history.NewLog(historyPath, logger)

	enricher := mediacache.NewEnricher(mediacache.NewCache(), map[queue.Source]mediacache.MetadataProvider{
		queue.SourceSpotify: spotify,
		queue.SourceYouTube: ytdlp,
	}, logger)

	var overlay *appservices.OBSOverlayService
	if cfg.OBS.Enabled {
		wsURL := fmt.Sprintf("ws://%s:%d", cfg.OBS.Host, cfg.OBS.Port)
		overlay = appservices.NewOBSOverlayService(wsURL, cfg.OBS.Password, cfg.OBS.SceneName)
	}

	var notifier pipeline.Notifier
	if overlay != nil {
		notifier = overlay
	}
	pipe := pipeline.New(pipeline.Deps{
		Store:     store,
		History:   hist,
		Config:    cfgManager.Current,
		Extractor: extractor,
		Resolver:  spotify,
		Market:    spotify,
		YouTube:   ytdlp,
		Notifier:  notifier,
		Log:       logger,
	})

	var events *eventsapi.Client
	if cfg.EventsAPI.URL != "" {
		events = eventsapi.NewClient(&http.Client{Timeout: 30 * time.Second}, cfg.EventsAPI.URL, cfg.EventsAPI.MaxRequestsPerMinute, logger)
	}

	return &App{
		cfg:              cfgManager,
		db:               db,
		settings:         settings,
		flow:             flow,
		spotify:          spotify,
		player:           spotify,
		ytdlp:            ytdlp,
		store:            store,
		reconciler:       queue.NewReconciler(store, spotify, logger),
		hist:             hist,
		enricher:         enricher,
		events:           events,
		pipe:             pipe,
		overlay:          overlay,
		clients:          map[*websocket.Conn]struct{}{},
		clientsBroadcast: make(chan string, 100),
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

//go:embed build/*
var staticControlPanelFS embed.FS

func (a *App) Run() error {
	cfg := a.cfg.Current()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	log.Printf("App is running on %s...", addr)

	// Ensure services are stopped on exit
	defer a.cancel()
	defer a.db.Close()

	// Start OBS overlay websocket service asynchronously
	if a.overlay != nil {
		go func() {
			if err := a.overlay.StartCtx(a.ctx); err != nil {
				log.Printf("Failed to start OBS overlay service: %v", err)
				// Don't fail the app, recws retries the connection
			}
		}()
	}

	go func() {
		if err := a.cfg.Watch(a.ctx); err != nil {
			log.Printf("Config watcher stopped: %v", err)
		}
	}()

	go a.reconciler.Run(a.ctx)

	// Pick a playback device up front so the first request does not pay
	// the selection round trip
	if a.flow.Authenticated() {
		go func() {
			if id, err := a.spotify.EnsureDevice(a.ctx); err != nil {
				log.Printf("No playback device available yet: %v", err)
			} else {
				log.Println("Using playback device", id)
			}
		}()
	}

	if a.events != nil {
		go a.events.Run(a.ctx)
		go a.handleTipEvents()
	} else {
		log.Println("Warning: events_api.url not configured, tip feed disabled")
	}

	go a.handleBroadcasts()
	go a.localControl()

	// Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.StaticFS("/", echo.MustSubFS(staticControlPanelFS, "build"))

	e.GET("/callback", a.handleSpotifyCallback)

	apiV1 := e.Group("/api/v1")
	apiV1.GET("/queue", a.handleGetQueue)
	apiV1.POST("/queue/add", a.handleAddToQueue)
	apiV1.POST("/queue/pause", a.handlePauseQueue)
	apiV1.POST("/queue/resume", a.handleResumeQueue)
	apiV1.POST("/queue/next", a.handleNextInQueue)
	apiV1.POST("/queue/move", a.handleMoveInQueue)
	apiV1.POST("/queue/delete", a.handleDeleteFromQueue)
	apiV1.GET("/config", a.handleGetConfig)
	apiV1.POST("/config", a.handleUpdateConfig)
	apiV1.GET("/history/recent", a.handleGetHistory)
	apiV1.POST("/history/clear", a.handleClearHistory)
	apiV1.GET("/devices", a.handleGetDevices)
	apiV1.POST("/device", a.handleSelectDevice)
	apiV1.GET("/search", a.handleSearch)
	apiV1.GET("/events/recent", a.handleRecentEvents)
	apiV1.GET("/spotify/auth/status", a.handleSpotifyStatus)
	apiV1.POST("/spotify/auth/start", a.handleSpotifyConnect)
	apiV1.POST("/spotify/auth/disconnect", a.handleSpotifyDisconnect)
	apiV1.GET("/ws", a.handleAppWs)

	var cmd string
	var args []string
	switch runtime.GOOS {
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default: // "linux", "freebsd", "openbsd", "netbsd"
		cmd = "xdg-open"
	}
	args = append(args, "http://"+addr+"/")
	exec.Command(cmd, args...).Start()

	// Start server with graceful shutdown
	go func() {
		<-a.ctx.Done()
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	return e.Start(addr)
}

func (a *App) handleTipEvents() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case tip := <-a.events.Tips():
			a.pipe.HandleTip(a.ctx, tip)
			a.broadcastQueueState()
		}
	}
}
