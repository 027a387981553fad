// Package app contains the core application logic. It wires the configured
// logger, tracer, journal and progress observers around a pipeline built
// from definition files, and exposes the run, plan, watch and history
// operations independently of any entrypoint such as the CLI.
package app
