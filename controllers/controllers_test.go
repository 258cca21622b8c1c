package controller

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"encorecrm/engine"
	"encorecrm/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Lead{},
		&models.FollowUpTemplate{},
		&models.CommunicationHistory{},
		&models.AISettings{},
	))
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type fakeMailer struct {
	sent []engine.EmailMessage
	err  error
}

func (f *fakeMailer) SendEmail(ctx context.Context, msg engine.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
