// Package registry connects the names used in pipeline definition files
// (e.g. "smooth") to compiled algorithms.
//
// Modules register an Algorithm per kind: its typed arguments and a
// constructor producing the pipeline.Spec. During startup the registry is
// checked for internal consistency; afterwards it validates a loaded
// `config.Model` and builds or re-synchronises a live pipeline from it.
package registry
