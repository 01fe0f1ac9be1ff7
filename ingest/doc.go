// Package ingest wires the bulk loading pipeline:
//
//	frames -> drop header -> map records -> batch(K) -> balance over N endpoints -> merge
//
// Batch i goes to endpoint i mod N. Each endpoint handles one batch at a
// time, and the first failed submission cancels every other branch and ends
// the run with that error.
package ingest
