// Command dbbackup uploads an encrypted SQLite snapshot to S3-compatible
// storage, or restores one.
//
//	dbbackup                 snapshot DATABASE_URL and upload it
//	dbbackup -restore KEY    download KEY and write it to DATABASE_URL
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yvesmugisha901/umuturage-backend/internal/backup"
	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dbbackup: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := backup.S3Config{
		Endpoint:  os.Getenv("BACKUP_S3_ENDPOINT"),
		Bucket:    os.Getenv("BACKUP_S3_BUCKET"),
		Region:    os.Getenv("BACKUP_S3_REGION"),
		AccessKey: os.Getenv("BACKUP_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("BACKUP_S3_SECRET_KEY"),
		Prefix:    os.Getenv("BACKUP_S3_PREFIX"),
	}

	fs := flag.NewFlagSet("dbbackup", flag.ContinueOnError)
	dbPath := fs.String("database-url", envOr("DATABASE_URL", "umuturage.db"), "SQLite database path")
	restoreKey := fs.String("restore", "", "object key to restore instead of taking a backup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.Setup(os.Getenv("UMUTURAGE_LOG_LEVEL"), os.Getenv("UMUTURAGE_LOG_FORMAT"))

	m, err := backup.NewManager(cfg, os.Getenv("BACKUP_PASSPHRASE"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *restoreKey != "" {
		if err := m.Restore(ctx, *restoreKey, *dbPath); err != nil {
			return err
		}
		logger.Info("backup restored", "key", *restoreKey, "path", *dbPath)
		return nil
	}

	db, err := database.Open(ctx, database.Config{Driver: database.DriverSQLite, DSN: *dbPath})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	key, size, err := m.Run(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("backup uploaded", "bucket", cfg.Bucket, "key", key, "bytes", size)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
