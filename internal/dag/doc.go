// Package dag holds the dependency graph between pipeline nodes. It detects
// cycles and produces the deterministic source-to-sink order the pipeline
// visits nodes in; it knows nothing about ports, requests or execution.
package dag
