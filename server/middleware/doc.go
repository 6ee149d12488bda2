// Package middleware provides the Gin middleware stack for the HTTP server.
package middleware
