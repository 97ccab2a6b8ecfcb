package backend

import (
	"sort"
	"strings"

	"github.com/wippyai/ukv-go/errors"
)

// Flag names one build-time toggle.
type Flag string

const (
	UMem         Flag = "umem"
	LevelDB      Flag = "leveldb"
	RocksDB      Flag = "rocksdb"
	FlightClient Flag = "flight-client"
	FlightServer Flag = "flight-server"
)

type flagInfo struct {
	define  string
	library string
	storage bool
}

// Canonical order. Defines, libraries and String all follow it.
var order = []Flag{UMem, LevelDB, RocksDB, FlightClient, FlightServer}

var registry = map[Flag]flagInfo{
	UMem:         {define: "UKV_BUILD_ENGINE_UMEM", library: "ukv_embedded_umem", storage: true},
	LevelDB:      {define: "UKV_BUILD_ENGINE_LEVELDB", library: "ukv_embedded_leveldb", storage: true},
	RocksDB:      {define: "UKV_BUILD_ENGINE_ROCKSDB", library: "ukv_embedded_rocksdb", storage: true},
	FlightClient: {define: "UKV_BUILD_API_FLIGHT_CLIENT", library: "ukv_flight_client"},
	FlightServer: {define: "UKV_BUILD_API_FLIGHT_SERVER", library: "ukv_flight_server"},
}

// Flags returns every known flag in canonical order.
func Flags() []Flag {
	out := make([]Flag, len(order))
	copy(out, order)
	return out
}

// Storage reports whether f selects an embedded storage engine
// rather than an RPC front end.
func (f Flag) Storage() bool {
	return registry[f].storage
}

// Define returns the native build definition the flag maps to.
func (f Flag) Define() string {
	return registry[f].define
}

// Library returns the native library compiled for the flag.
func (f Flag) Library() string {
	return registry[f].library
}

// Valid reports whether f is a known flag.
func (f Flag) Valid() bool {
	_, ok := registry[f]
	return ok
}

// Define is one native build definition.
type Define struct {
	Name  string
	Value string
}

// String renders the definition in NAME=VALUE form.
func (d Define) String() string {
	return d.Name + "=" + d.Value
}

// Set is an immutable selection of backends. The zero value has
// every backend disabled.
type Set struct {
	bits uint8
}

func bit(f Flag) uint8 {
	for i, o := range order {
		if o == f {
			return 1 << i
		}
	}
	return 0
}

// Select normalizes independent toggles into a Set. Flags missing
// from toggles are disabled. Unknown flags are rejected.
func Select(toggles map[Flag]bool) (Set, error) {
	var s Set
	var unknown []string
	for f, on := range toggles {
		if !f.Valid() {
			unknown = append(unknown, string(f))
			continue
		}
		if on {
			s.bits |= bit(f)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Set{}, errors.InvalidInput(errors.PhaseSelect,
			"unknown backend(s): "+strings.Join(unknown, ", "))
	}
	return s, nil
}

// MustSelect returns the Set with exactly the given flags enabled.
// It panics on unknown flags.
func MustSelect(flags ...Flag) Set {
	toggles := make(map[Flag]bool, len(flags))
	for _, f := range flags {
		toggles[f] = true
	}
	s, err := Select(toggles)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse builds a Set from flag names such as "umem,rocksdb".
// Empty names are ignored, so Parse(nil) yields an empty Set.
func Parse(names []string) (Set, error) {
	toggles := make(map[Flag]bool, len(names))
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			toggles[Flag(part)] = true
		}
	}
	return Select(toggles)
}

// Enabled reports whether f is enabled.
func (s Set) Enabled(f Flag) bool {
	b := bit(f)
	return b != 0 && s.bits&b != 0
}

// List returns the enabled flags in canonical order.
func (s Set) List() []Flag {
	var out []Flag
	for _, f := range order {
		if s.Enabled(f) {
			out = append(out, f)
		}
	}
	return out
}

// HasStorage reports whether at least one storage engine is enabled.
// A Set without one is valid but yields a library that cannot open
// a database.
func (s Set) HasStorage() bool {
	for _, f := range order {
		if f.Storage() && s.Enabled(f) {
			return true
		}
	}
	return false
}

// Empty reports whether nothing is enabled.
func (s Set) Empty() bool {
	return s.bits == 0
}

// Toggles returns every flag with its state.
func (s Set) Toggles() map[Flag]bool {
	out := make(map[Flag]bool, len(order))
	for _, f := range order {
		out[f] = s.Enabled(f)
	}
	return out
}

// Defines returns one definition per known flag: "1" when enabled and
// "0" otherwise.
func (s Set) Defines() []Define {
	out := make([]Define, 0, len(order))
	for _, f := range order {
		v := "0"
		if s.Enabled(f) {
			v = "1"
		}
		out = append(out, Define{Name: f.Define(), Value: v})
	}
	return out
}

// Libraries returns the native libraries of the enabled flags.
func (s Set) Libraries() []string {
	var out []string
	for _, f := range s.List() {
		out = append(out, f.Library())
	}
	return out
}

// String renders the enabled flags as a comma separated list, or "none".
func (s Set) String() string {
	list := s.List()
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, f := range list {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
