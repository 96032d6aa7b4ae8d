// Package retention removes old audit records.
//
// A Pruner applies two limits in order: records older than MaxAge are
// deleted, then the oldest records beyond MaxRecords. A Scheduler runs the
// pruner on a standard five-field cron expression such as "0 4 * * *"; the
// schedule "off" disables it.
package retention
