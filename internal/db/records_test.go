package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listing-reconcile/internal/config"
	"github.com/listing-reconcile/internal/writer"
)

func newMockRepo(t *testing.T) (*RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewRecordRepository(sqlx.NewDb(mockDB, "postgres"), nil), mock
}

func TestActiveByPartition(t *testing.T) {
	repo, mock := newMockRepo(t)
	id1, id2 := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "name", "phone", "postal_code", "city", "is_active"}).
		AddRow(id1.String(), "Dupont Plomberie", nil, "75011", "Paris", true).
		AddRow(id2.String(), "Martin Elec", "0102030405", nil, nil, true)

	mock.ExpectQuery(`SELECT id, name, phone, address_postal_code AS postal_code, address_city AS city, is_active FROM providers WHERE address_department = \$1 AND is_active = \$2`).
		WithArgs("75", true).
		WillReturnRows(rows)

	records, err := repo.ActiveByPartition(context.Background(), "75")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, id1, records[0].ID)
	assert.Equal(t, "Dupont Plomberie", records[0].Name)
	assert.Empty(t, records[0].Phone)
	assert.Equal(t, "75011", records[0].PostalCode)
	assert.Equal(t, "75", records[0].Partition)
	assert.True(t, records[0].Active)

	assert.Equal(t, "0102030405", records[1].Phone)
	assert.Empty(t, records[1].PostalCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveByPartitionError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT (.+) FROM providers`).WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.ActiveByPartition(context.Background(), "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partition 13")
}

func TestCountActive(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM providers WHERE is_active = \$1`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1234))

	count, err := repo.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, count)
}

func TestBulkAssignPhones(t *testing.T) {
	repo, mock := newMockRepo(t)
	updates := []writer.Update{
		{RecordID: uuid.New(), Phone: "0102030405"},
		{RecordID: uuid.New(), Phone: "0607080910"},
	}

	mock.ExpectExec(`UPDATE providers AS p\s+SET phone = v.phone\s+FROM unnest\(\$1::uuid\[\], \$2::text\[\]\) AS v\(id, phone\)\s+WHERE p.id = v.id AND \(p.phone IS NULL OR p.phone = ''\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.BulkAssignPhones(context.Background(), updates)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkAssignPhonesEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	n, err := repo.BulkAssignPhones(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignPhone(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := writer.Update{RecordID: uuid.New(), Phone: "0102030405"}

	mock.ExpectExec(`UPDATE providers SET phone = \$1 WHERE id = \$2 AND \(phone IS NULL OR phone = ''\)`).
		WithArgs("0102030405", u.RecordID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.AssignPhone(context.Background(), u)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Database{
		Host:           "db.example.com",
		Port:           "5432",
		User:           "postgres",
		Password:       "p@ss word",
		Name:           "postgres",
		SSLMode:        "require",
		ConnectTimeout: 30 * time.Second,
	})
	assert.Equal(t, "host=db.example.com port=5432 user=postgres dbname=postgres sslmode=require password='p@ss word' connect_timeout=30", dsn)

	dsn = DSN(config.Database{Host: "localhost", Port: "5432", User: "u", Name: "d", SSLMode: "disable"})
	assert.NotContains(t, dsn, "password")
	assert.NotContains(t, dsn, "connect_timeout")
}
