// Package bulk turns batches of entities into Elasticsearch style bulk
// requests and submits them to a single endpoint.
//
// The payload is newline-delimited JSON: one action line followed by one
// document line per entity.
//
//	{"index":{"_index":"vikings","_type":"vikings"}}
//	{"name":"Ragnar","place":"Kattegat"}
//
// HTTPSubmitter posts it to http://<endpoint>/_bulk. Each endpoint is
// guarded by a bulkhead that admits one submission at a time, so two
// overlapping submissions to the same endpoint fail instead of racing.
package bulk
