// Package database connects to the inventory database and persists the
// in-memory inventory.
//
// # Connect
//
// Connect opens a GORM connection for the configured driver. "mysql" is the
// production driver; "sqlite" serves local runs and tests.
//
// # Repository
//
// Load reads every inventory table into an inventory.Inventory. Save writes
// the objects a run created or changed inside a single transaction and then
// commits the in-memory change state.
//
// # Schema Inspection
//
// GetTableColumns lists the live columns of a table and CheckSchema reports
// tables and columns the inventory models expect but the database lacks.
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	issues, err := database.CheckSchema(db)
package database
