// Package lifecycle owns the listening socket of an http.Server and runs the
// ordered shutdown: stop accepting, drain in-flight requests, release the
// port, wait a fixed exit delay, then report termination.
package lifecycle
