package redisapp_test

import (
	"context"
	"errors"
	"testing"

	redisapp "portfolio/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_HealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &redisapp.Client{Client: db}

	mock.ExpectPing().SetVal("PONG")
	require.NoError(t, client.HealthCheck(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}
