// Package inventory holds the data model of managed objects and an in-memory
// store that tracks which objects were created or changed during a run.
package inventory
