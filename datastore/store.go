package datastore

import (
	"fmt"

	"github.com/glebarez/sqlite"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	pgmigrations "github.com/netdox/netdox/datastore/migrations/postgres"
	sqlitemigrations "github.com/netdox/netdox/datastore/migrations/sqlite"
	"github.com/netdox/netdox/neterr"
)

// DBMS selects the backing SQL engine.
type DBMS string

const (
	SQLite DBMS = "sqlite"
	Postgres DBMS = "postgres"
)

// ConnConfig is the minimal connection info needed to open a Store,
// matching the fields of "data-store connection (host, port,
// db index, optional user/password)".
type ConnConfig struct {
	System DBMS
	Host string
	Port string
	Username string
	Password string
	DBName string
	// Path is used when System == SQLite; DBName/Host/etc are ignored.
	Path string
}

// Store is the reference Datastore implementation. Connection setup and
// migration execution are ported from sessions/session.go's
// setupDB/selectDBMS/migrations, swapping the asset-db schema for the
// netdox keyspace tables in models.go.
type Store struct {
	db *gorm.DB
	dbms DBMS
	dsn string
	cache *Cache
}

// Open builds a Store, selects the dialector per cfg.System, and runs
// migrations up before returning.
func Open(cfg ConnConfig) (*Store, error) {
	s := &Store{dbms: cfg.System, cache: NewCache()}

	var dialector gorm.Dialector
	var migrationsSrc migrate.MigrationSource
	var migrateDialect string

	switch cfg.System {
	case SQLite:
		path := cfg.Path
		if path == "" {
			path = "netdox.sqlite"
		}
		s.dsn = path
		dialector = sqlite.Open(path)
		migrationsSrc = migrate.EmbedFileSystemMigrationSource{
			FileSystem: sqlitemigrations.Migrations(),
			Root: ".",
		}
		migrateDialect = "sqlite3"
	case Postgres:
		s.dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName)
		dialector = postgres.Open(s.dsn)
		migrationsSrc = migrate.EmbedFileSystemMigrationSource{
			FileSystem: pgmigrations.Migrations(),
			Root: ".",
		}
		migrateDialect = "postgres"
	default:
		return nil, neterr.Configf(nil, "unsupported datastore system %q", cfg.System)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, neterr.Datastoref(err, "failed to open datastore connection")
	}
	s.db = gdb

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, neterr.Datastoref(err, "failed to extract raw sql.DB from gorm")
	}
	if _, err := migrate.Exec(sqlDB, migrateDialect, migrationsSrc, migrate.Up); err != nil {
		return nil, neterr.Datastoref(err, "failed to execute datastore migrations")
	}

	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return neterr.Datastoref(err, "failed to extract raw sql.DB from gorm")
	}
	return sqlDB.Close()
}
