// Package provider implements a small generic framework for swappable
// backends, used to select the recognition engine at runtime.
//
// A Registry maps backend names to factories that build a provider from a
// loosely typed configuration map. Providers report readiness through
// IsAvailable and, optionally, detailed health through HealthChecker.
//
// DuplexStream describes a bidirectional connection such as a websocket to
// a recognition server.
//
// # Usage
//
//	reg := provider.NewRegistry[recognizer.Engine]()
//	reg.RegisterFactory("vosk-server", voskws.Factory())
//	engine, err := reg.Resolve("vosk-server", map[string]any{"url": url})
package provider
