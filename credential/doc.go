// Package credential provides a file-persisted bearer credential store for
// outbound HTTP clients.
//
// The Store is the single source of truth for the current bearer token and
// the UUID of the user it belongs to. State lives in memory, guarded by a
// per-instance mutex, and is mirrored to a single JSON file so the
// credential survives process restarts:
//
//	{"token": "<opaque bearer token>", "userUuid": "<canonical UUID>"}
//
// # Invariants
//
//   - The token is non-empty iff the user identifier is set.
//   - A stored token never carries leading or trailing whitespace.
//   - An empty credential is never written to disk; the file keeps its last
//     non-empty value until overwritten by a later update.
//   - Readers always observe a fully committed credential, never a mix of
//     one update's token with another's identifier.
//
// # Usage
//
//	store, err := credential.New("/var/lib/myapp/credentials.json",
//	    credential.WithLogger(logger),
//	    credential.WithTracer(tracer),
//	)
//	if err != nil {
//	    // Corrupt or misconfigured cache file; decide whether to reset it.
//	}
//
//	if err := store.Update(ctx, token, userID); err != nil {
//	    // Validation or persistence failure; memory state stays authoritative.
//	}
//
// An optional Watcher reloads the store when the cache file is rewritten on
// disk, for setups where credentials are rotated externally. A cache file
// path must otherwise be owned by exactly one Store per process.
package credential
