// Package formats decodes Vision engine .model files.
//
// A model is a flat sequence of chunks. Each chunk starts with a four-character
// identity and has no length field, so every decoder must consume exactly the
// bytes of its chunk. Records are versioned: a field added in version N is read
// only when the record's version is at least N.
//
// Decode walks a stream and delivers the records to a Handler in file order.
// Walker exposes the same records one Event at a time.
package formats
