package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-license-api/internal/config"
	"github.com/go-license-api/internal/infrastructure/bolt"
	"github.com/go-license-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-license-api/internal/infrastructure/jwt"
	"github.com/go-license-api/internal/pkg/code"
	"github.com/go-license-api/internal/pkg/secret"
	transporthttp "github.com/go-license-api/internal/transport/http"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("Server stopped")
}

// run wires the service and serves until ctx is done. The store is opened
// last and released on every return path.
func run(ctx context.Context, cfg *config.Config) error {
	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}
	generator, err := code.NewGenerator(cfg.CodeLength, cfg.CodeAlphabet)
	if err != nil {
		return fmt.Errorf("code generator: %w", err)
	}
	admin, err := adminMatcher(cfg)
	if err != nil {
		return fmt.Errorf("admin credential: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		CodeStore: store,
		Tokens:    tokens,
		Generator: generator,
		Admin:     admin,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s)", cfg.AppPort, cfg.AppEnv, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	return nil
}

// openStore returns the configured activation code store and its release func.
func openStore(ctx context.Context, cfg *config.Config) (transporthttp.CodeStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreBolt:
		st, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(); err != nil {
				log.Printf("close bolt store: %v", err)
			}
		}, nil
	default:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
			return nil, nil, fmt.Errorf("bootstrap tables: %w", err)
		}
		return dynamo.NewActivationCodeRepo(client, cfg.DynamoTables.ActivationCodes), func() {}, nil
	}
}

func adminMatcher(cfg *config.Config) (*secret.Matcher, error) {
	if cfg.AdminSecretHash != "" {
		return secret.NewMatcher(cfg.AdminSecretHash)
	}
	return secret.NewMatcherFromPlain(cfg.AdminSecret, bcrypt.DefaultCost)
}
