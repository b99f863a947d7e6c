package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockGormStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return NewGormStoreWithDB(db), mock
}

func TestGormStoreLoadFound(t *testing.T) {
	s, mock := newMockGormStore(t)
	mock.ExpectQuery(`SELECT \* FROM "workspace_blobs" WHERE workspace_id = \$1 AND name = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"workspace_id", "name", "data", "updated_at"}).
			AddRow("ws", "posts", []byte(`[{"id":"p1"}]`), time.Now()))

	data, ok, err := s.Load(context.Background(), "ws", "posts")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(data) != `[{"id":"p1"}]` {
		t.Fatalf("data = %s", data)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGormStoreLoadMissing(t *testing.T) {
	s, mock := newMockGormStore(t)
	mock.ExpectQuery(`SELECT \* FROM "workspace_blobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"workspace_id", "name", "data", "updated_at"}))

	_, ok, err := s.Load(context.Background(), "ws", "channels")
	if err != nil || ok {
		t.Fatalf("expected missing blob, ok=%v err=%v", ok, err)
	}
}

func TestGormStoreSaveUpserts(t *testing.T) {
	s, mock := newMockGormStore(t)
	mock.ExpectExec(`INSERT INTO "workspace_blobs" .* ON CONFLICT \("workspace_id","name"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Save(context.Background(), "ws", "posts", []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
