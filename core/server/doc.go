// Package server holds the HTTP server configuration.
//
// The serve command builds the fiber application from this configuration:
// the listen port, the API key checked by the auth middleware and the
// deadline applied to sync runs triggered over HTTP.
package server
