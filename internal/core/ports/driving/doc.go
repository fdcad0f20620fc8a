// Package driving provides interfaces through which the CLI drives the
// core services (primary/inbound ports).
package driving
