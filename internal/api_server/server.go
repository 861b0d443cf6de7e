package apiserver

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/consensus"
	handlers "github.com/realia-labs/realia/internal/handlers/v1alpha1"
	"github.com/realia-labs/realia/internal/pipeline"
	"github.com/realia-labs/realia/internal/service"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/util"
	"github.com/realia-labs/realia/internal/vectorindex"
	"github.com/realia-labs/realia/pkg/certprovider"
	"github.com/realia-labs/realia/pkg/metrics"
	"github.com/realia-labs/realia/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	deps     *Dependencies
	listener net.Listener
}

// New returns a new instance of the realia api server.
func New(
	cfg *config.Config,
	store store.Store,
	deps *Dependencies,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		deps:     deps,
		listener: listener,
	}
}

// sessionSigner returns the authenticator that issues session tokens. Without a configured
// secret the tokens only live as long as the process.
func (s *Server) sessionSigner() (*auth.SessionAuthenticator, error) {
	secret := []byte(s.cfg.Service.Auth.JwtSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		zap.S().Named("api_server").Warn("no jwt secret configured, sessions will not survive a restart")
	}
	return auth.NewSessionAuthenticator(secret, s.store.Session()), nil
}

func (s *Server) Handler() (http.Handler, error) {
	signer, err := s.sessionSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to create session signer: %w", err)
	}

	authenticate := signer.Authenticator
	if s.cfg.Service.Auth.AuthenticationType != auth.SessionAuthentication {
		authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth, s.store.Session())
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticator: %w", err)
		}
		authenticate = authenticator.Authenticator
	}

	router := chi.NewRouter()
	if s.cfg.Service.PathPrefix != "" {
		router.Use(util.StripPathPrefix(s.cfg.Service.PathPrefix))
	}

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	duplicates := vectorindex.NewDuplicateDetector(s.deps.Index, SearchParams(s.cfg), s.cfg.Vector.DuplicateThreshold)

	orchestrator := pipeline.NewOrchestrator(pipeline.Collaborators{
		Embedder:   s.deps.Embedder,
		Classifier: s.deps.Classifier,
		Duplicates: duplicates,
		Gate:       s.deps.Ledger,
		Minter:     s.deps.Ledger,
		Publisher:  s.deps.Publisher,
		Index:      s.deps.Index,
		Store:      s.store,
	},
		pipeline.WithMaxUploadSize(s.cfg.Service.MaxUploadSize),
		pipeline.WithPresignTTL(s.cfg.Storage.PresignTTL),
		pipeline.WithLifecycleProducer(s.deps.Producer),
	)

	h := handlers.NewServiceHandler(
		orchestrator,
		service.NewAuthService(s.store, signer, s.cfg.Service.Auth.SessionTTL),
		service.NewRecordService(s.store, s.deps.Publisher, s.cfg.Storage.PresignTTL),
		service.NewVerificationService(s.store, consensus.FromLedger(s.deps.Ledger)),
		handlers.WithMaxUploadSize(s.cfg.Service.MaxUploadSize),
		handlers.WithSecureCookie(s.cfg.Service.Auth.SecureCookie),
	)
	handlers.HandlerFromMux(h, router, authenticate)

	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router, err := s.Handler()
	if err != nil {
		return err
	}

	// SSE streams stay open for the whole pipeline, so no write timeout.
	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	janitor := NewSessionJanitor(service.NewAuthService(s.store, nil, s.cfg.Service.Auth.SessionTTL), time.Hour)
	go janitor.Run(ctx)

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	listener, err := s.secureListener()
	if err != nil {
		return err
	}

	zap.S().Named("api_server").Infof("Listening on %s...", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// secureListener wraps the listener according to the tls mode.
func (s *Server) secureListener() (net.Listener, error) {
	var (
		tlsConfig *tls.Config
		err       error
	)
	switch s.cfg.Service.TLS.Mode {
	case "", "none":
		return s.listener, nil
	case "selfsigned":
		zap.S().Named("api_server").Warn("serving with a self-signed certificate")
		tlsConfig, err = certprovider.NewSelfSignedCertificateProvider("realia", s.cfg.Service.TLS.Hosts...).
			TLSConfig(time.Now().AddDate(1, 0, 0))
	case "files":
		var pair tls.Certificate
		pair, err = tls.LoadX509KeyPair(s.cfg.Service.TLS.CertFile, s.cfg.Service.TLS.KeyFile)
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	default:
		return nil, fmt.Errorf("unknown tls mode %q", s.cfg.Service.TLS.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to configure tls: %w", err)
	}
	return tls.NewListener(s.listener, tlsConfig), nil
}
