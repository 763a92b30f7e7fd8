// Package database opens the sqlx pool used by the Postgres revocation store.
package database
