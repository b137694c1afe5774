// Package artifact persists finished simulation records and serves them back
// to the log viewer.
//
// The canonical RecordStore / RecordReader interfaces live in the core
// package to avoid dependency cycles and keep domain contracts central.
// Implementation packages like this one (local files, in-memory, object
// stores, indexes) provide storage backends that can be swapped without
// touching calling code.
//
// FileStore writes one indented JSON document per run, optionally zstd
// compressed and validated against the embedded record schema, and can fan
// the bytes out to a Mirror (see artifact/s3) and the listing row out to an
// Indexer (see artifact/index).
package artifact
