package core

import (
	"fmt"
	"os"

	"storecore/internal/infra/persistence/bolt"
	"storecore/internal/infra/persistence/memory"
	"storecore/internal/infra/persistence/postgres"
	"storecore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StorageBolt     StorageDriver = "bolt"     // embedded bbolt file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	STORECORE_STORAGE_DRIVER: memory|sqlite|bolt|postgres (default sqlite)
//	STORECORE_SQLITE_PATH: path to sqlite file (default ./storecore.db)
//	STORECORE_BOLT_PATH: path to bbolt file (default ./storecore.bolt)
//	STORECORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("STORECORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("STORECORE_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StorageBolt:
		path := os.Getenv("STORECORE_BOLT_PATH")
		return bolt.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("STORECORE_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
