// Package snapshot serializes collections of records and stores them
// in a Target.
//
// # Codecs
//
// [JSON] writes an indented JSON array:
//
//	[
//	  {"id": "6f1c...", "model": "Volvo", "capacity": 42},
//	  ...
//	]
//
// [Siser] writes one siser block per record, which is easy to read and
// to process line by line:
//
//	--- 56 record
//	{"id": "6f1c...", "model": "Volvo", "capacity": 42}
//
// # Targets
//
// [FileTarget] writes a local file atomically (see package atomicfile)
// and compresses it if the path ends with .gz, .zst or .br.
// [MemoryTarget] is for tests. Remote targets live in packages minioutil,
// sftputil and httputil. [Compressed] adds compression to any target.
package snapshot
