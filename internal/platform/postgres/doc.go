// Package postgres provides PostgreSQL implementations of the store
// interfaces. Each store accepts a store.DBTX so it can run against either
// the shared connection pool or a transaction, and maps driver errors to
// the sentinel errors defined in the store package.
package postgres
