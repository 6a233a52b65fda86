// Package pipeline runs each received datagram through an ordered chain of
// steps: analyze the payload, record it in the traffic statistics, then
// render the result.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls so that commands can assemble only the steps they need (the
// offline analyze command skips rendering until all files are done) while
// error handling and logging stay in one place.
//
// BatchProcessor runs the same chain over many payloads concurrently with
// errgroup, keeping results in input order.
package pipeline
