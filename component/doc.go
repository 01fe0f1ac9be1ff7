// Package component defines lifecycle-managed pieces of a bulkflow run.
//
// A Component is started before the run's task executes and stopped after it
// returns, whatever the outcome. The Registry starts components in
// registration order and stops them in reverse, so register dependencies
// first (telemetry before the submitter that records into it).
package component
