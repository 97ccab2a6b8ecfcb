// Package config resolves ukvbuild settings from defaults, an optional
// ukv.yaml, UKV_* environment variables and bound command-line flags, in
// increasing order of precedence.
//
//	# ukv.yaml
//	source: ./third_party/ukv
//	profile: release
//	backends:
//	  rocksdb: true
//	  flight-client: false
//
// It is the only package that reads ambient state. Load returns a
// pipeline.Config that the rest of the module treats as immutable.
package config
