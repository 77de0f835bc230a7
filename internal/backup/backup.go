// Package backup snapshots the SQLite database, encrypts it and stores it
// in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yvesmugisha901/umuturage-backend/internal/database"
)

var ErrPostgres = errors.New("snapshots are only supported for sqlite; use pg_dump for postgres")

// s3Client is the subset of the S3 API used here.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Manager struct {
	client     s3Client
	bucket     string
	prefix     string
	passphrase string
	now        func() time.Time
}

// NewManager creates a Manager backed by an S3 client for cfg.
func NewManager(cfg S3Config, passphrase string) (*Manager, error) {
	if !cfg.Configured() {
		return nil, errors.New("backup not configured: S3 bucket and credentials are required")
	}
	if passphrase == "" {
		return nil, errors.New("backup passphrase is required")
	}
	return newManager(newS3Client(cfg), cfg.Bucket, cfg.Prefix, passphrase), nil
}

func newManager(client s3Client, bucket, prefix, passphrase string) *Manager {
	return &Manager{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		passphrase: passphrase,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Run snapshots db with VACUUM INTO, encrypts the snapshot and uploads it.
// It returns the object key and the uploaded size.
func (m *Manager) Run(ctx context.Context, db *database.DB) (string, int64, error) {
	if db.Postgres() {
		return "", 0, ErrPostgres
	}

	dir, err := os.MkdirTemp("", "umuturage-backup-")
	if err != nil {
		return "", 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "snapshot.db")
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return "", 0, fmt.Errorf("vacuum into: %w", err)
	}
	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return "", 0, fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, m.passphrase)
	if err != nil {
		return "", 0, err
	}

	key := m.prefix + fmt.Sprintf("umuturage-%s.db.enc", m.now().Format("2006-01-02T150405Z"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return "", 0, fmt.Errorf("upload to s3: %w", err)
	}
	return key, int64(len(sealed)), nil
}

// Restore downloads key, decrypts it, checks SQLite integrity and writes the
// database to dstPath. dstPath must not be open by a running server.
func (m *Manager) Restore(ctx context.Context, key, dstPath string) error {
	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read download: %w", err)
	}
	plaintext, err := Open(sealed, m.passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmp := dstPath + ".restore"
	if err := os.WriteFile(tmp, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(ctx, tmp); err != nil {
		return err
	}

	if err := os.Rename(tmp, dstPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(dstPath + "-wal")
	os.Remove(dstPath + "-shm")
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
