// Package web builds the HTTP handler tree: static assets and the favicon are
// answered first, and every remaining request renders the index view.
package web
