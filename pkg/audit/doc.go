// Package audit defines the audit log of firewall decisions.
//
// Every blocked command, and optionally every allowed one, is written as a
// Record. Records are stored through the Storage interface; backends live in
// the storage subpackage (SQLite and in-memory). The recorder subpackage
// queues records asynchronously so that checks never wait on storage, and the
// retention subpackage prunes old records on a cron schedule. The export
// subpackage writes records as JSON or CSV.
//
// # Querying
//
//	blocked := false
//	records, err := store.Query(ctx, &audit.Query{
//	    Allowed: &blocked,
//	    Source:  "command_block",
//	    Limit:   50,
//	})
//
// Results are newest first unless SortOrder is "asc".
//
// # Errors
//
// Backends wrap failures in *StorageError. Get returns ErrNotFound for unknown
// IDs. Invalid queries are reported as *QueryError.
package audit
