// Package backend selects which storage engines and RPC front ends the
// native UKV library is compiled with.
//
// A Set is an immutable value built once from independent toggles and
// threaded explicitly through the build pipeline:
//
//	set, err := backend.Select(map[backend.Flag]bool{backend.RocksDB: true})
//	set.Defines()   // UKV_BUILD_ENGINE_ROCKSDB=1, every other macro =0
//	set.Libraries() // [ukv_embedded_rocksdb]
//
// Every flag is off unless enabled. There is no mutual exclusion: an
// embedded engine may be combined with the flight client and server, and
// the flight client and server are independent options with no implied
// default. A Set with no storage engine is representable; HasStorage
// lets callers reject it as policy.
package backend
