// Package program implements the ballot state transition: a deterministic
// handler that validates ownership of an account, loads or initializes the
// tally record stored in it, applies at most one vote and writes the record
// back. The handler performs no I/O; persistence, authorization of callers and
// exclusive access to the account are the responsibility of the host.
package program
