package persistent

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverPostgres Driver = "pg"
	DriverSqlite   Driver = "sqlite"
)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver Driver, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	var db *bun.DB
	switch driver {
	case DriverPostgres:
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSqlite:
		// single connection keeps in-memory databases alive and serializes writers
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		_ = sqldb.Close()
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	if os.Getenv("DB_VERBOSE") == "true" {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

func models() []interface{} {
	return []interface{}{
		(*MemberActivity)(nil),
		(*NotificationLog)(nil),
	}
}

// CreateSchema creates missing tables and indexes.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range models() {
		_, err := db.NewCreateTable().IfNotExists().Model(model).Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table %T: %w", model, err)
		}
	}

	_, err := db.NewCreateIndex().IfNotExists().
		Model((*MemberActivity)(nil)).
		Index("member_activity_last_active_at_idx").
		Column("last_active_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create last_active_at index: %w", err)
	}

	_, err = db.NewCreateIndex().IfNotExists().
		Model((*NotificationLog)(nil)).
		Index("notification_log_company_id_idx").
		Column("company_id", "id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create notification_log index: %w", err)
	}
	return nil
}

// Running integration tests requires real pg db instance, but we
// don't have enough time to start db for every test so testenv starts db once
// and then passes datasource to as many tests as we want.

func PgOpenTest(ctx context.Context) *bun.DB {
	db, err := Open(ctx, DriverPostgres, TestEnvDsn())
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open test database.")
	}
	return db
}

// SqliteOpenTest opens a fresh in-memory database with the schema created.
func SqliteOpenTest(ctx context.Context) *bun.DB {
	db, err := Open(ctx, DriverSqlite, "file::memory:")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open in-memory database.")
	}
	if err := CreateSchema(ctx, db); err != nil {
		logrus.WithError(err).Fatalln("Could not create in-memory schema.")
	}
	return db
}

func TestEnvDsn() string {
	return os.Getenv("PGDB_DSN")
}

func SetTestEnvDsn(dsn string) {
	os.Setenv("PGDB_DSN", dsn)
}
