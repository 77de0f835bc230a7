package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func openFileDB(t *testing.T, path string) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunAndRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := openFileDB(t, filepath.Join(dir, "live.db"))

	if _, err := store.NewUserStore(db).Create(ctx, "admin", "admin@example.com", "hash", model.RoleAdmin); err != nil {
		t.Fatalf("create user: %v", err)
	}

	client := newMockS3()
	m := newManager(client, "backups", "nightly/", "passphrase")
	m.now = func() time.Time { return time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC) }

	key, size, err := m.Run(ctx, db)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if key != "nightly/umuturage-2026-03-01T020000Z.db.enc" {
		t.Errorf("key = %q", key)
	}
	if size != int64(len(client.objects[key])) {
		t.Errorf("size = %d, stored %d", size, len(client.objects[key]))
	}
	if bytes.Contains(client.objects[key], []byte("admin@example.com")) {
		t.Error("uploaded snapshot is not encrypted")
	}

	restored := filepath.Join(dir, "restored.db")
	if err := m.Restore(ctx, key, restored); err != nil {
		t.Fatalf("restore: %v", err)
	}

	rdb := openFileDB(t, restored)
	u, err := store.NewUserStore(rdb).GetByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil || u.Role != model.RoleAdmin {
		t.Fatalf("restored user = %+v", u)
	}
}

func TestRunUploadError(t *testing.T) {
	db := openFileDB(t, filepath.Join(t.TempDir(), "live.db"))
	client := newMockS3()
	client.putErr = errors.New("access denied")

	_, _, err := newManager(client, "backups", "", "pass").Run(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("err = %v, want upload error", err)
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := openFileDB(t, filepath.Join(dir, "live.db"))
	client := newMockS3()

	key, _, err := newManager(client, "backups", "", "right").Run(ctx, db)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := newManager(client, "backups", "", "wrong").Restore(ctx, key, filepath.Join(dir, "out.db")); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
}

func TestRestoreMissingKey(t *testing.T) {
	m := newManager(newMockS3(), "backups", "", "pass")
	if err := m.Restore(context.Background(), "nope", filepath.Join(t.TempDir(), "out.db")); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestNewManagerRequiresConfig(t *testing.T) {
	if _, err := NewManager(S3Config{Bucket: "b"}, "pass"); err == nil {
		t.Error("expected error without credentials")
	}
	cfg := S3Config{Bucket: "b", AccessKey: "a", SecretKey: "s", Endpoint: "http://localhost:9000"}
	if _, err := NewManager(cfg, ""); err == nil {
		t.Error("expected error without passphrase")
	}
	if _, err := NewManager(cfg, "pass"); err != nil {
		t.Errorf("new manager: %v", err)
	}
}
