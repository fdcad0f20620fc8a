// Package services contains the core orchestration: the per-file
// processing pipeline and the sync cycle that drives it.
package services
