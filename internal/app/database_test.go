package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
)

func TestPoolLimits(t *testing.T) {
	tests := []struct {
		name     string
		workers  config.WorkerConfig
		wantOpen int
		wantIdle int
	}{
		{"defaults", config.WorkerConfig{PaymentWorkers: 1, RefundWorkers: 1, WebhookWorkers: 1}, 24, 4},
		{"scaled webhooks", config.WorkerConfig{PaymentWorkers: 2, RefundWorkers: 1, WebhookWorkers: 8}, 32, 12},
		{"api only", config.WorkerConfig{}, 21, 1},
		{"negative counts ignored", config.WorkerConfig{PaymentWorkers: -3}, 21, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, idle := poolLimits(tt.workers)
			assert.Equal(t, tt.wantOpen, open)
			assert.Equal(t, tt.wantIdle, idle)
		})
	}
}

func TestPingWithRetry_RecoversAfterFailures(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	require.NoError(t, pingWithRetry(context.Background(), db, 5, time.Millisecond))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingWithRetry_GivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	refused := errors.New("connection refused")
	for range 3 {
		mock.ExpectPing().WillReturnError(refused)
	}

	err = pingWithRetry(context.Background(), db, 3, time.Millisecond)
	assert.ErrorIs(t, err, refused)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.NoError(t, mock.ExpectationsWereMet())
}
