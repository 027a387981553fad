// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. It is suitable for single-process
// pipelines where results do not need to outlive the process.
package inmemorystore
