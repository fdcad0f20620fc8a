// Package domain contains the core types shared across the sync pipeline.
// Types here have no dependencies on adapters or external services.
package domain
