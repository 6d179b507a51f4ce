// Command noid's supporting library. A database is a directory under a
// configured data directory (pkg/config) holding one pluggable key-value
// backend (pkg/store) plus everything derived from it: the admin cache
// (pkg/admincache), the minting engine (pkg/minter) and its pre-generation
// pool (pkg/pregen) and recycling queue (pkg/queue), and the element-binding
// engine (pkg/binding). pkg/session ties these together into one open/close
// lifecycle per database; cmd/noid is the flaggy-based CLI front end that
// drives a session per invocation.
package noid
