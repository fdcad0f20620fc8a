// Package google provides shared plumbing for Google API access:
// service construction, error classification and retry decisions.
package google
