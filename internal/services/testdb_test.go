package services

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/db"
	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/requestdata"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func learnerContext(learnerID uint) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		LearnerID:    learnerID,
		LearnerEmail: "learner@example.gov",
		LearnerName:  "Test Learner",
	})
}

func authorityContext(username string) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		Authority: username,
	})
}
