// Package config defines the format-agnostic model of a pipeline definition
// (nodes, their inputs and arguments, variables, and update targets) and
// the Loader interface that fills it from files.
//
// The `config.Model` is the single source of truth for the `registry`
// package, which turns it into a live pipeline. Concrete loaders, such as
// the HCL one, live in separate packages.
package config
