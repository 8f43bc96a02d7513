package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseChecker(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	check := DatabaseChecker(db)

	mock.ExpectPing()
	assert.NoError(t, check(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.EqualError(t, check(context.Background()), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChecker(t *testing.T) {
	client, mock := redismock.NewClientMock()
	check := RedisChecker(client)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, check(context.Background()))

	mock.ExpectPing().SetErr(errors.New("dial tcp: connection refused"))
	assert.Error(t, check(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}
