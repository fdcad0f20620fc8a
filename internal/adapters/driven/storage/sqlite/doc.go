// Package sqlite implements the derived-record store on SQLite via the
// pure-Go modernc.org/sqlite driver. Embeddings are stored as
// little-endian float32 blobs; similarity search is a brute-force
// cosine scan, which is adequate for the corpus sizes a single Drive
// folder produces.
package sqlite
