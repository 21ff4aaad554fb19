package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chemo-it/backoffice/config"
	"github.com/chemo-it/backoffice/internal/events"
	"github.com/chemo-it/backoffice/internal/handlers"
	"github.com/chemo-it/backoffice/internal/notify"
	"github.com/chemo-it/backoffice/internal/rowstore"
	"github.com/chemo-it/backoffice/internal/services"
	"github.com/chemo-it/backoffice/internal/session"
	"github.com/chemo-it/backoffice/internal/storage"
	"github.com/chemo-it/backoffice/internal/store"
)

// Server wraps the HTTP server and its wired dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *zap.Logger
	sessions   *session.RedisStore
	publisher  *events.Publisher
}

// New constructs a Server with all components wired from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	gateway, err := rowstore.New(cfg.RowStore, log.Named("rowstore"))
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Signing.Secret) == "" {
		return nil, errors.New("SIGNING_SECRET is required")
	}

	signatureBackend, err := newSignatureBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	signatures := storage.NewSignatures(signatureBackend)
	if err := signatures.Init(ctx); err != nil {
		return nil, fmt.Errorf("init signature storage: %w", err)
	}

	publisher, err := newEventPublisher(ctx, cfg.Events, log.Named("events"))
	if err != nil {
		return nil, err
	}

	sessions := session.NewRedisStore(cfg.Session)

	repo := store.NewAccountRepository(gateway)
	accountService := services.NewAccountService(repo, publisher, log.Named("accounts"))
	authService := services.NewAuthService(repo, sessions, cfg.Session.TTL, log.Named("auth"))

	notifier := notify.NewNotifier(cfg.SMS, log.Named("sms"))
	signingHandler := handlers.NewSigningHandler(cfg.Signing, notifier, signatures, publisher)

	requireSession := handlers.RequireSession(authService, cfg.Session.CookieName)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, cfg.Session.CookieName, cfg.Session.TTL)
	})
	router.Route("/accounts", func(r chi.Router) {
		r.Use(requireSession)
		handlers.AccountRouter(r, accountService)
	})
	router.Route("/notifications", func(r chi.Router) {
		r.Use(requireSession)
		handlers.NotificationRouter(r, signingHandler)
	})
	router.Route("/signatures", func(r chi.Router) {
		handlers.SignatureRouter(r, signingHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		log:        log,
		sessions:   sessions,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.sessions != nil {
		_ = s.sessions.Close()
	}
	_ = s.log.Sync()
	return s.httpServer.Close()
}

func newSignatureBackend(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinioStore(cfg.Minio)
	case "gcs":
		return storage.NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newEventPublisher(ctx context.Context, cfg config.EventsConfig, log *zap.Logger) (*events.Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return events.NewPublisher(nil, "", log), nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQBackend(cfg)
		if err != nil {
			return nil, err
		}
		// Fanout exchange: the routing key is ignored.
		return events.NewPublisher(backend, "", log), nil
	case "pubsub":
		backend, err := events.NewPubSubBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return events.NewPublisher(backend, cfg.Topic, log), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
