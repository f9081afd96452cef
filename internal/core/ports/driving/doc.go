// Package driving provides interfaces for application entry points
// (primary/inbound ports). External routing layers and the CLI talk to
// the core through these.
package driving
