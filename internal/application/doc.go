// Package application provides application initialization and dependency wiring.
// It loads the views and favicon, builds the handler tree and HTTP server, and
// hands the server to a lifecycle controller, keeping the main package focused
// on CLI parsing and signal handling.
package application
