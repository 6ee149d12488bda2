// Package server exposes transcription over HTTP using Gin, served through
// h2c so HTTP/2 cleartext clients work alongside HTTP/1.1.
//
// Each request runs its own transcription pipeline; nothing is shared
// between requests except the engine factory output.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - RequestLogger: request logging and HTTP metrics
//   - BodySizeLimit: request body size limits
//   - Auth: bearer token authentication (HMAC-signed JWTs)
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - POST /v1/transcriptions: multipart upload of a WAV recording
//   - GET /health: engine availability
//   - GET /version: build version information
package server
