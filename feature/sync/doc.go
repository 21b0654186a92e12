// Package sync runs configured sources against the inventory database.
//
// A run compiles the source settings, builds the source (prefetching its
// collections where supported), loads the inventory, reconciles, and saves
// the changes unless it is a dry run. A run that fails to query its source
// still saves what the phases before the failure changed. Reports can be uploaded to object storage
// under <report_prefix><source>/ where only the newest keep_reports survive.
//
// # HTTP
//
//	GET  /sync          configured sources and their last report
//	POST /sync/:source  run a source (?dry_run=true, ?upload=true)
//	GET  /sync/:source  last report of a source
//
// Concurrent POSTs for the same source and mode share one run.
package sync
