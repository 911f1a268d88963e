// Package linebuf turns a stream of arbitrarily sized byte chunks into
// complete, delimiter-terminated records.
//
// Bytes are accumulated in a [Buffer] that grows by doubling. A
// [Reassembler] owns a Buffer and yields every complete record with
// [Reassembler.Drain]. Bytes after the last delimiter stay pending until
// more data arrives:
//
//	var r linebuf.Reassembler
//	r.Append([]byte("ab"))
//	r.Append([]byte("c\nde"))
//	for rec := range r.Drain() {
//	    // rec is "abc\n"
//	}
//	// r.Pending() is 2 ("de")
//
// Splitting input across Append calls never changes which records are
// produced.
//
// Neither type is safe for concurrent use. Callers that share one
// Reassembler between goroutines must serialize access themselves.
package linebuf
