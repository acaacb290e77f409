// Package health provides a registry of named component health checks for
// the PACS bridge process.
//
// # Overview
//
// The health package gives the bridge a single place to register and run
// checks for its component dependencies: the MWL database, the queue's
// SQLite store, the routing destination table, and the MLLP listener. It
// does not expose HTTP; wiring liveness/readiness into an admin surface,
// if one exists, is the caller's responsibility.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//
//	checker.RegisterCheck("mwl_store", func(ctx context.Context) error {
//	    return mwlDB.PingContext(ctx) // mwlDB is a *sql.DB
//	})
//	checker.RegisterCheck("queue_store", func(ctx context.Context) error {
//	    return queueDB.PingContext(ctx) // queueDB is a *sql.DB
//	})
//
//	status := checker.CheckReadiness(context.Background())
//
// # Liveness vs Readiness
//
// CheckLiveness reports whether the process is alive; it never runs a
// registered check and never blocks. CheckReadiness runs every registered
// check concurrently, with a per-check timeout, and reports "degraded" if
// any check fails.
//
// # Performance
//
// Health checks are designed to be lightweight:
//   - Liveness: <10ms
//   - Readiness: <100ms (all component checks running concurrently)
package health
