// Package gcsmock is an in-memory test double for a Google Cloud
// Storage-style object service. It reproduces the externally observable
// behavior of the real service (existence semantics, error conditions,
// metadata merge rules, copy semantics) so that code exercising
// upload/download/metadata/listing logic can be tested deterministically,
// with no network I/O, latency, or billing side effects.
//
// # Basic usage
//
//	s, _ := gcsmock.New()
//	obj := s.Bucket("photos").Object("cat.png")
//
//	exists, _ := obj.Exists(ctx) // false: resolving a handle creates nothing
//	_ = obj.Save(ctx, []byte("meow"), nil)
//	exists, _ = obj.Exists(ctx)  // true: Save marked the object present
//
// An object exists exactly while it is a member of its bucket. Handles are
// cheap, cached, and identity-stable; only the mutating operations (Save,
// SetMetadata on a present object, write-stream creation, Copy targets, Put)
// insert membership, and only Delete removes it.
//
// # Fault injection
//
// Every object carries one FIFO queue of pending synthetic errors per
// mockable operation. The queue is consulted before any other logic and an
// entry is consumed exactly once, so a single enqueue forces exactly one
// failure:
//
//	obj.FailNext(gcsmock.OpDownload, io.ErrUnexpectedEOF)
//	_, err := obj.Download(ctx) // io.ErrUnexpectedEOF, verbatim
//	_, err = obj.Download(ctx)  // nil: the queue entry was consumed
//
// Stream construction (NewWriter, NewReader) is deliberately outside the
// fault protocol; see the method documentation.
//
// # Test setup
//
// Bucket.Put, Bucket.SeedObject, and the YAML fixture support
// (WithFixtureFile) are administrative primitives that bypass the fault
// queues entirely. Snapshot persistence (WithSnapshot) stores the simulated
// state in a SQLite file between runs. Prometheus counters for operations
// and injected faults are available via Register.
package gcsmock
