package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/stage-quiz-backend/internal/auth"
	"github.com/DoyleJ11/stage-quiz-backend/internal/config"
	"github.com/DoyleJ11/stage-quiz-backend/internal/controller"
	"github.com/DoyleJ11/stage-quiz-backend/internal/httpapi"
	"github.com/DoyleJ11/stage-quiz-backend/internal/hub"
	"github.com/DoyleJ11/stage-quiz-backend/internal/moderation"
	"github.com/DoyleJ11/stage-quiz-backend/internal/store"
	"github.com/DoyleJ11/stage-quiz-backend/internal/store/badgerstore"
	"github.com/DoyleJ11/stage-quiz-backend/internal/store/pgstore"
	"github.com/DoyleJ11/stage-quiz-backend/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("closing store", zap.Error(err))
		}
	}()

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	mod, err := moderation.NewModerator(moderation.ParseWordList(cfg.BannedNicknames))
	if err != nil {
		return fmt.Errorf("build nickname moderator: %w", err)
	}

	h := hub.NewHub(ctx, hub.WithLogger(log.Named("hub")))
	ctl := controller.New(h, st, verifier, mod, log.Named("controller"))

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, ctl, httpapi.Options{
		PublicURL: cfg.PublicURL,
		WS:        ws.Options{OutboxSize: cfg.OutboxSize, ReadTimeout: cfg.ReadTimeout},
	}, log.Named("http"))

	srv := &http.Server{Addr: cfg.Addr(), Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Stop the hub first so open sockets see their rooms go away.
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		st, err := pgstore.Open(cfg.DatabaseURL, log.Named("pgstore"))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return st, nil
	}

	if cfg.BadgerPath == "" {
		log.Warn("no DATABASE_URL or BADGER_PATH set, games and users live in memory only")
	}
	st, err := badgerstore.Open(cfg.BadgerPath, log.Named("badgerstore"))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return st, nil
}

func newVerifier(cfg config.Config) (auth.Verifier, error) {
	if cfg.IdentityKeyFile != "" {
		pem, err := os.ReadFile(cfg.IdentityKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read identity key: %w", err)
		}
		v, err := auth.NewRSAVerifier(pem, cfg.IdentityAud, cfg.IdentityIssuer)
		if err != nil {
			return nil, fmt.Errorf("identity key: %w", err)
		}
		return v, nil
	}
	return auth.NewHMACVerifier([]byte(cfg.IdentitySecret), cfg.IdentityAud, cfg.IdentityIssuer), nil
}
