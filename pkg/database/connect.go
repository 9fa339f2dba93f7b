package database

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ConnectOptions holds Postgres connection settings.
type ConnectOptions struct {
	Driver          string
	Host            string
	Port            string
	UserName        string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the Postgres pool and verifies connectivity.
func Connect(opts ConnectOptions, logger ectologger.Logger) (DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		opts.Host, opts.Port, opts.UserName, opts.Password, opts.Name, opts.SSLMode,
	)

	db, err := sqlx.Connect(opts.Driver, dsn)
	if err != nil {
		logger.WithError(err).Errorf("Failed to connect to database %s", opts.Name)
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	logger.Infof("Connected to database %s", opts.Name)
	return NewDatabaseInstance(db, logger), nil
}
