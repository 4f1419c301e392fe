// Package sqlitestore implements a persistent store.JobStore on
// modernc.org/sqlite: an example durable collaborator for deployments
// that need the job/trigger/calendar set to survive a process restart,
// as opposed to memstore's process-lifetime-only in-memory map.
package sqlitestore
