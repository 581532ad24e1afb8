package pipeline

import "fmt"

// ConnectionError means a source database or the wiki API is unreachable
// or rejected authentication. It is fatal to the current run; the next
// scheduled run starts fresh.
type ConnectionError struct {
	System string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.System, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RecordParseError means a single record was malformed. The record is
// dropped and the run continues; it exists so per-record drops carry the
// affected identifier for manual reconciliation.
type RecordParseError struct {
	RecordID string
	Err      error
}

func (e *RecordParseError) Error() string {
	return fmt.Sprintf("failed to parse record %s: %v", e.RecordID, e.Err)
}

func (e *RecordParseError) Unwrap() error { return e.Err }
