// Package application is the runtime that receives the resolved configuration:
// it builds the logger, the sidecar HTTP handler and server, and runs them
// until the launch context is cancelled.
package application
