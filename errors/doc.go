// Package errors provides the structured error type used across bulkflow.
//
// Every failure that ends a run carries a machine-readable ErrorCode so the
// CLI and the logs can tell framing problems apart from submission failures.
// Two AppErrors match under errors.Is when their codes are equal, which lets
// packages export sentinel values while still attaching per-call details.
package errors
