// Package dispatch runs a batch of correction records through a fixed-size
// worker pool and guarantees one logged outcome per record.
//
// Example usage:
//
//	agg := results.New(successLog, failureLog)
//	d := dispatch.New(apiClient, credentials, agg, dispatch.Config{Workers: 8})
//	summary := d.Run(ctx, records)
//
// Per record a worker:
//   - resolves the account credential (missing: failure line, no request)
//   - submits the correction through the rate-limited, retrying client
//   - writes "HTTP <code> <body>" to the success or failure log
//   - on any error or panic writes the raw record to the failure log
//
// A single record never aborts the batch. Records are processed in no
// particular order.
package dispatch
