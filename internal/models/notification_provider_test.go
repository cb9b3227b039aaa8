package models_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Wikid82/geogate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNotificationProvider_BeforeCreate(t *testing.T) {
	dsn := fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.NotificationProvider{}))

	provider := models.NotificationProvider{Name: "Test", URL: "generic+https://example.com/hook"}
	require.NoError(t, db.Create(&provider).Error)
	assert.NotEmpty(t, provider.ID)

	preset := models.NotificationProvider{ID: "fixed", Name: "Preset"}
	require.NoError(t, db.Create(&preset).Error)
	assert.Equal(t, "fixed", preset.ID)
}

func TestNotificationProvider_Wants(t *testing.T) {
	p := models.NotificationProvider{NotifySpam: true}
	assert.True(t, p.Wants(models.EventSpam))
	assert.False(t, p.Wants(models.EventSummary))
	assert.False(t, p.Wants(models.EventBypass))
	assert.True(t, p.Wants(models.EventTest))
}

func TestBlockedAttempt_HeaderSnapshotRoundTrip(t *testing.T) {
	dsn := fmt.Sprintf("file:models_snapshot_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.BlockedAttempt{}))

	attempt := models.BlockedAttempt{
		UUID:           "a-1",
		IP:             "8.8.8.8",
		CountryCode:    "UNKNOWN",
		HeaderSnapshot: map[string]string{"X-Forwarded-For": "8.8.8.8"},
		OccurredAt:     time.Now(),
	}
	require.NoError(t, db.Create(&attempt).Error)

	var got models.BlockedAttempt
	require.NoError(t, db.First(&got, attempt.ID).Error)
	assert.Equal(t, "8.8.8.8", got.HeaderSnapshot["X-Forwarded-For"])
}
