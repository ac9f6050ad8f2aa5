// Package launcher hands the resolved configuration to the application
// runtime. Resolution runs once; a failure ends the process with ExitUsage
// before any runtime code executes, and the runtime's result becomes the exit
// status without being retried or reinterpreted.
package launcher
