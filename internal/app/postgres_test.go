package app

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/escrowd/config"
	"github.com/stretchr/testify/require"
)

func TestInitPostgres_OpenError(t *testing.T) {
	old := sqlOpener
	sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
		return nil, errors.New("open failed")
	}
	t.Cleanup(func() { sqlOpener = old })

	_, err := InitPostgres(baseConfig(config.DriverPostgres))
	require.ErrorContains(t, err, "failed to open postgres")
}

func TestInitPostgres_PingError(t *testing.T) {
	var mock sqlmock.Sqlmock
	old := sqlOpener
	sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
		require.Equal(t, "postgres", driverName)
		require.Equal(t, "postgres://x:y@127.0.0.1:54329/z?sslmode=disable", dataSourceName)
		db, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			return nil, err
		}
		m.ExpectPing().WillReturnError(errors.New("ping failed"))
		m.ExpectClose()
		mock = m
		return db, nil
	}
	t.Cleanup(func() { sqlOpener = old })

	_, err := InitPostgres(baseConfig(config.DriverPostgres))
	require.ErrorContains(t, err, "failed to ping postgres")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenStorage_AutoMigrateFailureClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)

	old := postgresOpener
	postgresOpener = func(cfg config.Config) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { postgresOpener = old })

	cfg := baseConfig(config.DriverPostgres)
	cfg.Storage.AutoMigrate = true

	_, err = OpenStorage(cfg)
	require.ErrorContains(t, err, "failed to migrate postgres")
}
