// Package views parses the HTML view templates once at startup and renders
// them on demand.
package views
