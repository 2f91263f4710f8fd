package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-box-api/internal/models"
)

func TestSessionRepositoryCreate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewSessionRepository(client)

	record := models.SessionRecord{
		Principal: models.Principal{Role: models.RoleStudent, LocalID: 3, GlobalID: 303},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(record)
	require.NoError(t, err)
	mock.ExpectSet("grievance:session:abc", payload, time.Hour).SetVal("OK")

	require.NoError(t, repo.Create(context.Background(), "abc", record, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFind(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewSessionRepository(client)

	mock.ExpectGet("grievance:session:abc").SetVal(`{"principal":{"role":"Admin","id":1,"global_id":1}}`)

	record, err := repo.Find(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, record.Principal.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewSessionRepository(client)

	mock.ExpectGet("grievance:session:gone").RedisNil()

	_, err := repo.Find(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewSessionRepository(client)

	mock.ExpectDel("grievance:session:abc").SetVal(1)

	require.NoError(t, repo.Delete(context.Background(), "abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
