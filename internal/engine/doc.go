// Package engine contains the core scanning logic for foxter. It enumerates
// the regular files under a root directory, hashes each one, checks the
// digest against a signature set and streams progress, batches of results
// and a final completion event back to the caller. This package is internal;
// external consumers should use the stable facade in pkg/core.
package engine
