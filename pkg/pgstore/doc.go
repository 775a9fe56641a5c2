// Package pgstore is the Postgres backend of the notification engine.
//
// Store implements notify.Store and notify.Audience over database/sql, so it
// runs on a pgx pool through FromPool and on sqlmock in tests. TaskStore
// implements the queue repositories on the scheduled_jobs tables, claiming
// with FOR UPDATE SKIP LOCKED so several workers can share a queue.
//
// The schema lives in the db package and is applied with pg.Migrate.
package pgstore
