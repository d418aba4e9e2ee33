package repos

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	applog "inkwell/internal/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

//go:embed migrations
var migrations embed.FS

// OpenDB opens the store behind dsn, applies migrations and seeds demo data.
// Postgres URLs use pgx; anything else is a SQLite path or DSN.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := SeedDefaults(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}
	return db, nil
}

// Connect opens and pings the database without touching the schema.
func Connect(dsn string) (*sqlx.DB, error) {
	driver := driverFor(dsn)
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite && isMemory(dsn) {
		// every new connection to :memory: is a fresh, empty database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return nil, err
		}
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	applog.Logger().Debug().Str("driver", driver).Msg("[db] connected")
	return db, nil
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// sqliteDSN adds the pragmas file databases need: enforced foreign keys,
// a busy timeout, and writers that take the lock at BEGIN.
func sqliteDSN(dsn string) string {
	if isMemory(dsn) || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Migrate applies the embedded migrations for the connected dialect.
func Migrate(db *sqlx.DB) error {
	dir := "migrations/sqlite"
	var (
		drv database.Driver
		err error
	)
	switch db.DriverName() {
	case DriverPostgres:
		dir = "migrations/postgres"
		drv, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	default:
		drv, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return err
	}
	src, err := iofs.New(migrations, dir)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), drv)
	if err != nil {
		return err
	}
	// m.Close would also close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// The helpers below rebind `?` placeholders for whichever driver q wraps.

func getx(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func selectx(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func execx(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
