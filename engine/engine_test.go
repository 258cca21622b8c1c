package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"encorecrm/models"
)

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory
	// database.
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

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func seedLead(t *testing.T, db *gorm.DB, mutate func(*models.Lead)) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		DirectorName:   "Sarah Chen",
		DirectorEmail:  "s.chen@lincolnhigh.edu",
		DirectorPhone:  "+15555550123",
		School:         "Lincoln High School",
		Program:        "Into the Woods",
		Season:         "Spring 2027",
		PerformerCount: 24,
		StandardRate:   587,
		DiscountRate:   469.6,
		Savings:        117.4,
		Status:         models.StatusQuoteSent,
	}
	if mutate != nil {
		mutate(lead)
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

type fakeEmailSender struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSMSSender struct {
	sent []SMSMessage
	err  error
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, msg SMSMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestDelivery(email *fakeEmailSender, sms *fakeSMSSender) *DeliveryCoordinator {
	return NewDeliveryCoordinator(email, sms, discardLogger())
}
