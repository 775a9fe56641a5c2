// Package async runs functions in goroutines and collects their results as
// futures. The notification controller uses it to run flows in parallel and
// to fan a notification out to many recipients.
//
//	futures := make([]*async.Future[Outcome], 0, len(flows))
//	for _, f := range flows {
//	    futures = append(futures, async.Async(ctx, f, run))
//	}
//	outcomes, err := async.Settle(futures...)
package async
