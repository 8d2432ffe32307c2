package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"placement-engine/config"
	"placement-engine/feed"
	"placement-engine/logger"
	"placement-engine/models"
	"placement-engine/store"
)

// runStore is the persistence the handlers need; *store.Store satisfies it
type runStore interface {
	SaveRun(ctx context.Context, run *store.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	GetRunBalls(ctx context.Context, id uuid.UUID) ([]models.BattedBall, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	ListPlayers(ctx context.Context) ([]store.PlayerHands, error)
	LoadBattedBalls(ctx context.Context, player string, hand models.Handedness) ([]models.Measurement, error)
	SaveBattedBalls(ctx context.Context, ms []models.Measurement) (int64, error)
}

// battedBallFeed is the remote tracking platform; *feed.Service satisfies it
type battedBallFeed interface {
	Configured() bool
	FetchBattedBalls(ctx context.Context, q feed.Query) ([]feed.Item, error)
	FetchPlayers(ctx context.Context, q feed.Query) ([]feed.Player, error)
	CacheSize() int
}

type Server struct {
	db         *pgxpool.Pool
	store      runStore
	feed       battedBallFeed
	router     *mux.Router
	httpServer *http.Server
	config     *config.Config
	metrics    *Metrics
	log        *logger.Entry
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	dbConfig, err := pgxpool.ParseConfig(cfg.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}

	dbConfig.MaxConns = cfg.Database.MaxConns
	dbConfig.MinConns = 2
	dbConfig.MaxConnLifetime = time.Hour
	dbConfig.MaxConnIdleTime = time.Minute * 30

	db, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	fd := feed.NewService(cfg.Feed.BaseURL, cfg.Feed.APIKey, feed.Options{
		Timeout:           cfg.Feed.Timeout,
		CacheTTL:          cfg.Feed.CacheTTL,
		RequestsPerSecond: cfg.Feed.RequestsPerSecond,
	})
	if cfg.Feed.CacheTTL > 0 {
		fd.StartCacheCleanup(ctx, cfg.Feed.CacheTTL)
	}

	s := newServer(cfg, st, fd)
	s.db = db
	return s, nil
}

// newServer wires routes around already-built dependencies
func newServer(cfg *config.Config, st runStore, fd battedBallFeed) *Server {
	s := &Server{
		store:   st,
		feed:    fd,
		config:  cfg,
		router:  mux.NewRouter(),
		metrics: NewMetrics(),
		log:     logger.GetLogger().WithComponent("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	s.router.Handle("/metrics/prometheus", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/players", s.getPlayersHandler).Methods("GET")

	api.HandleFunc("/placements", s.createPlacementHandler).Methods("POST")
	api.HandleFunc("/placements", s.listPlacementsHandler).Methods("GET")
	api.HandleFunc("/placements/upload", s.uploadPlacementHandler).Methods("POST")
	api.HandleFunc("/placements/{id}", s.getPlacementHandler).Methods("GET")
	api.HandleFunc("/placements/{id}/csv", s.placementCSVHandler).Methods("GET")
	api.HandleFunc("/placements/{id}/plot.png", s.placementPlotHandler).Methods("GET")
	api.HandleFunc("/placements/{id}/report.pdf", s.placementReportHandler).Methods("GET")

	api.HandleFunc("/data/refresh", s.refreshDataHandler).Methods("POST")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}

// Handler returns the router wrapped with CORS and compression
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	})
	return c.Handler(handlers.CompressHandler(s.router))
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.log.WithFields(logger.Fields{"port": s.config.Server.Port}).Info("Starting placement engine")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down placement engine...")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.db != nil {
		s.db.Close()
	}
	return err
}

// Middleware
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		s.metrics.Observe(routeName(r), lrw.statusCode, duration)

		entry := s.log.WithFields(logger.Fields{
			"method":      r.Method,
			"uri":         r.RequestURI,
			"status":      lrw.statusCode,
			"duration_ms": duration.Milliseconds(),
		})
		if lrw.statusCode >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithFields(logger.Fields{"panic": err, "uri": r.RequestURI}).Error("Panic recovered")
				writeError(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// routeName returns the matched route template so metrics labels stay bounded
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.GetLogger().WithError(err).Warn("failed to load .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to load config")
	}

	log := logger.GetLogger()
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Fatal("Failed to configure logger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewServer(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create server")
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Fatal("Server shutdown failed")
		}
		log.Info("Server shutdown complete")
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("Server failed to start")
	}
}
