package databaseconn

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/azuridayo/tiptune/internal/data"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const dbName = "tiptune.db"

func init() {
	// create db if missing
	if _, err := os.Stat(dbName); os.IsNotExist(err) {
		file, err := os.Create(dbName)
		if err != nil {
			log.Fatal(err.Error())
		}
		file.Close()
	}
}

func NewDBConnection() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+dbName)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func getMigrator() (*migrate.Migrate, error) {
	d, err := iofs.New(data.GetMigrationFS(), "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", d, "sqlite3://"+dbName)
}

// Migrate brings the schema up to date. A failed migration leaves the
// schema_migrations table dirty, which blocks every future run, so on
// failure the dirty flag is cleared by forcing the version back by one.
func Migrate() error {
	m, err := getMigrator()
	if err != nil {
		return err
	}
	uperr := m.Up()
	if uperr == nil || uperr == migrate.ErrNoChange {
		m.Close()
		return nil
	}
	m.Close()

	log.Println("Migration failed, recovering...")
	if rerr := recoverDirtySchema(); rerr != nil {
		return rerr
	}
	return uperr
}

func recoverDirtySchema() error {
	db, err := NewDBConnection()
	if err != nil {
		return fmt.Errorf("migration recovery: connect: %w", err)
	}
	var version uint64
	var dirty bool
	row := db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1")
	if err := row.Scan(&version, &dirty); err != nil {
		db.Close()
		return fmt.Errorf("migration recovery: read schema version: %w", err)
	}
	db.Close()
	if !dirty {
		log.Println("Migration recovery not necessary, schema is not dirty")
		return nil
	}

	// close db first so the migrate engine can take over
	m, err := getMigrator()
	if err != nil {
		return err
	}
	defer m.Close()
	forceVersion := version - 1
	log.Println("Migration recovery will force schema back 1 version, to version", forceVersion)
	if err := m.Force(int(forceVersion)); err != nil {
		return fmt.Errorf("migration recovery: force version %d: %w", forceVersion, err)
	}
	log.Println("Migration recovery forced version to", forceVersion)
	return nil
}
