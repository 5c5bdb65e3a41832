// Package database persists completed comparison runs for dashboard history.
package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cmlane/overlay/compare"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunTableSQL = "CREATE TABLE IF NOT EXISTS comparison_run (id TEXT PRIMARY KEY, symbols TEXT, timeframe TEXT, points INTEGER, partial TEXT, createdon INTEGER)"
	persistRunSQL     = "INSERT INTO comparison_run(id, symbols, timeframe, points, partial, createdon) VALUES(?,?,?,?,?,?)"
)

// RunRecorder defines the requirements for recording comparison runs.
type RunRecorder interface {
	// PersistRun stores the provided comparison run to the database.
	PersistRun(ctx context.Context, run *compare.RunRecord) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunRecorder interface.
var _ RunRecorder = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistRun stores the provided comparison run to the database.
func (db *Database) PersistRun(ctx context.Context, run *compare.RunRecord) error {
	id := uuid.NewString()
	timeframe := run.Timeframe.String()

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistRunSQL,
			PositionalParams: []any{
				id,
				strings.Join(run.Symbols, ","),
				timeframe,
				run.Points,
				strings.Join(run.Partial, ","),
				run.CreatedOn.Unix(),
			},
		},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return fmt.Errorf("persisting comparison run %s: %w", id, err)
	}

	db.cfg.Logger.Debug().Msgf("persisted comparison run %s: %s", id, spew.Sdump(resp))

	return nil
}
