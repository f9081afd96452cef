// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): embedding backends, generation backends
// and vector storage.
package driven
