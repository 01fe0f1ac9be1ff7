// Package resilience guards downstream endpoints against overlapping work.
//
// A Bulkhead caps how many calls may run against one endpoint at a time. The
// bulk submitter keeps one bulkhead per endpoint with a single slot and no
// wait, so a second concurrent submission to the same endpoint is rejected
// with ErrBulkheadFull instead of silently overlapping the first:
//
//	group := resilience.NewBulkheadGroup(resilience.BulkheadConfig{MaxConcurrent: 1})
//	res, err := resilience.ExecuteWithResult(group.Get(endpoint), ctx, func() (Result, error) {
//	    return submit(ctx, endpoint, batch)
//	})
//
// There is deliberately no retry here: a rejected or failed call is reported
// to the caller as is.
package resilience
