// Package database provides SQLite connectivity for the controller's
// event history store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Additive-only schema migrations embedded in the binary
//   - Connection lifecycle and health checks
//
// SQLite is deliberate: the controller is a single process on a single
// machine and the history store needs no server. WAL mode lets API reads
// proceed while the event writer appends.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
