// Command createadmin seeds an admin account. Registration never
// creates admins, so this is the only way to bootstrap one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/logging"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "createadmin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	fs := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	username := fs.String("username", envOr("ADMIN_USERNAME", "admin"), "admin username")
	driver := fs.String("db-driver", envOr("UMUTURAGE_DB_DRIVER", database.DriverSQLite), "sqlite or pgx")
	dsn := fs.String("database-url", envOr("DATABASE_URL", "umuturage.db"), "SQLite path or Postgres URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	*email = strings.TrimSpace(strings.ToLower(*email))
	if *email == "" {
		return errors.New("email is required")
	}
	if len(*password) < auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}

	logger := logging.Setup(os.Getenv("UMUTURAGE_LOG_LEVEL"), "text")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.Config{Driver: *driver, DSN: *dsn})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	existing, err := users.GetByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user %s already exists with role %s", *email, existing.Role)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	u, err := users.Create(ctx, *username, *email, hash, model.RoleAdmin)
	if err != nil {
		return err
	}
	logger.Info("admin created", "user_id", u.ID, "email", u.Email)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
