package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/OmDoke/Book-Inventory-Management-System/identity"
	"github.com/OmDoke/Book-Inventory-Management-System/internal/app"
	"github.com/OmDoke/Book-Inventory-Management-System/internal/config"
)

func main() {
	flags := pflag.NewFlagSet("bookstore", pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	hashPassword := flags.String("hash-password", "", "print a bcrypt hash for BOOKSTORE_ADMIN_PASSWORD_HASH and exit")
	_ = flags.Parse(os.Args[1:])

	if *hashPassword != "" {
		hash, err := identity.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if err := loadEnvFile(*envFile); err != nil {
		log.Fatalf("load env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := newServerLogger(serverLogOutput, cfg.LogLevel, cfg.LogFormat)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(sigCtx, cfg, logger)
	if err != nil {
		logger.Error("new app", slog.Any("error", err))
		os.Exit(1)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- application.Start()
	}()

	select {
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server exited", slog.Any("error", err))
			os.Exit(1)
		}
		return
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := <-serverErrCh; err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadEnvFile populates unset variables from path. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}
