// Package session implements the open/close lifecycle: resolving a
// database directory, opening its backend and admin cache, wiring the
// minter and binding engines, and the optional persistent-connection
// registry that lets embedders reuse a session across calls instead of
// paying backend-open cost every time.
package session

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"github.com/cdl-noid/noid/pkg/admincache"
	"github.com/cdl-noid/noid/pkg/backend"
	"github.com/cdl-noid/noid/pkg/binding"
	"github.com/cdl-noid/noid/pkg/config"
	"github.com/cdl-noid/noid/pkg/dbcreate"
	"github.com/cdl-noid/noid/pkg/log"
	"github.com/cdl-noid/noid/pkg/minter"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/pregen"
	"github.com/cdl-noid/noid/pkg/store"
)

func init() {
	// Arm the deadlock detector's timeout-triggered report for every run:
	// a lock held longer than 10 seconds is reported.
	deadlock.Opts.DeadlockTimeout = 10 * time.Second
}

// Session is one open noid database: its backend handle, admin cache,
// wired minter/binding engines, logger, and per-session error buffer
// holding the last user-visible message.
type Session struct {
	mu deadlock.Mutex

	path     string
	settings config.Settings

	Store   store.Store
	Cache   *admincache.Cache
	Minter  *minter.Engine
	Binding *binding.Engine
	Pool    *pregen.Pool
	Log     *logrus.Entry
	Errors  noiderr.Buffer
}

var (
	registryMu sync8 // see below: process-wide registry for persistent connections
	registry   = map[string]*Session{}
)

// sync8 is a thin deadlock.Mutex alias, kept distinct from Session.mu so
// the registry's own lock is clearly a different critical section.
type sync8 = deadlock.Mutex

// Open resolves <data_dir>/<dbName>, opens its backend in mode, prefetches
// the admin cache, and wires the minter and binding engines. When
// settings.PersistentConnections is set and an open session already
// exists for this path, Open reuses it instead of opening the backend
// again — create-mode opens are never reused.
func Open(settings config.Settings, dbName string, mode store.Mode, contact string) (*Session, error) {
	dir := settings.DBPath(dbName)
	canonical, err := filepath.Abs(dir)
	if err != nil {
		return nil, noiderr.Wrap(noiderr.KindConfig, err)
	}

	if settings.PersistentConnections && mode != store.ModeCreate {
		registryMu.Lock()
		if existing, ok := registry[canonical]; ok {
			registryMu.Unlock()
			return existing, nil
		}
		registryMu.Unlock()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, noiderr.New(noiderr.KindConfig, "creating database directory %q: %s", dir, err)
	}

	fileName, err := backend.FileName(settings.DefaultBackend)
	if err != nil {
		return nil, err
	}
	st, err := backend.New(settings.DefaultBackend)
	if err != nil {
		return nil, err
	}
	if err := st.Open(filepath.Join(dir, fileName), mode); err != nil {
		return nil, noiderr.Wrap(noiderr.KindIO, err)
	}

	cache, err := admincache.Load(st)
	if err != nil {
		st.Close()
		return nil, err
	}

	logger, err := log.New(dir, settings.Debug, log.Fields{
		DBName:        dbName,
		GeneratorType: cache.GeneratorType(),
		Template:      cache.Template(),
	})
	if err != nil {
		st.Close()
		return nil, noiderr.New(noiderr.KindConfig, "opening log sink: %s", err)
	}

	mintEngine, err := minter.NewEngine(st, cache, contact, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	sess := &Session{
		path:     canonical,
		settings: settings,
		Store:    st,
		Cache:    cache,
		Minter:   mintEngine,
		Binding:  &binding.Engine{Store: st, Cache: cache, Minter: mintEngine},
		Pool:     mintEngine.Pool,
		Log:      logger,
	}

	if settings.PersistentConnections && mode != store.ModeCreate {
		registryMu.Lock()
		registry[canonical] = sess
		registryMu.Unlock()
	}
	return sess, nil
}

// Create runs the database-creation step of session lifecycle: open the
// backend fresh, delegate admin-record writing to dbcreate.Create, persist
// the creation report as the database directory's README, and close the
// backend (creation is a one-shot operation; callers that want to mint
// immediately call Open next).
func Create(settings config.Settings, dbName string, opts dbcreate.Options) (report string, err error) {
	dir := settings.DBPath(dbName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", noiderr.New(noiderr.KindConfig, "creating database directory %q: %s", dir, err)
	}

	fileName, err := backend.FileName(settings.DefaultBackend)
	if err != nil {
		return "", err
	}
	st, err := backend.New(settings.DefaultBackend)
	if err != nil {
		return "", err
	}
	if err := st.Open(filepath.Join(dir, fileName), store.ModeCreate); err != nil {
		return "", noiderr.Wrap(noiderr.KindIO, err)
	}
	defer st.Close()

	report, err = dbcreate.Create(st, opts)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(dir, "README"), []byte(report), 0o644); err != nil {
		return "", noiderr.New(noiderr.KindConfig, "writing README: %s", err)
	}
	return report, nil
}

// Close tears down the session: clears the admin cache and closes the
// backend. Under persistent-connection mode, Close on a registered path is
// a no-op — callers that genuinely want to release resources must call
// Unpersist first.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings.PersistentConnections {
		registryMu.Lock()
		_, stillRegistered := registry[s.path]
		registryMu.Unlock()
		if stillRegistered {
			return nil
		}
	}
	return s.teardown()
}

func (s *Session) teardown() error {
	s.Cache.Close()
	if err := s.Store.Close(); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

// Unpersist clears the persistent-connection flag for this session's path
// and forces a real close.
func (s *Session) Unpersist() error {
	registryMu.Lock()
	delete(registry, s.path)
	registryMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardown()
}

// Lock/Unlock expose the session's process-local mutex so CLI-level batch
// commands can hold one lock across several logical operations (e.g.
// bindMultiple's single lock acquisition). Most callers should prefer the
// Mint/Bind/Enqueue convenience methods below, which already acquire it
// per call.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Mint performs one mint under the session lock: every public mutating
// operation holds a single process-local mutex for its full duration.
func (s *Session) Mint(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.Minter.Mint(now)
	s.Errors.Push(err)
	return id, err
}

// MintMultiple mints up to count identifiers under a single lock
// acquisition, so setup happens once per batch rather than per id.
func (s *Session) MintMultiple(count int, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.Minter.MintMultiple(count, now)
	s.Errors.Push(err)
	return ids, err
}

// Pregenerate fills the pre-generation pool under the session lock.
func (s *Session) Pregenerate(count int, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.Pool.Pregenerate(count, now)
	s.Errors.Push(err)
	return n, err
}

// Enqueue queues or dequeues ids under the session lock.
func (s *Session) Enqueue(ids []string, when string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Minter.Enqueue(ids, when, now)
	s.Errors.Push(err)
	return err
}

// HoldSet / HoldRelease set or clear a hold under the session lock.
func (s *Session) HoldSet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Minter.Queue.HoldSet(id)
	s.Errors.Push(err)
	return err
}

func (s *Session) HoldRelease(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Minter.Queue.HoldRelease(id)
	s.Errors.Push(err)
	return err
}

// Bind applies one binding operation under the session lock.
// BindMultiple's how=="mint" path nests a call back into Mint, releasing
// and re-acquiring the lock around it — BindMultiple below implements
// that window explicitly; a single Bind call never nests.
func (s *Session) Bind(entry binding.Entry, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.Binding.Bind(entry, now)
	s.Errors.Push(err)
	return v, err
}

// BindMultiple applies a batch of binding operations under one lock
// acquisition, returning per-entry results in input order. There is no
// separate pre-validation pass: each entry's preconditions are checked as
// it is applied, and a rejected entry carries its error in its Result. An
// entry whose how=="mint" briefly releases the lock to call Bind — a
// hazard under concurrent sessions against the same store, since it is
// the one intra-operation lock window.
func (s *Session) BindMultiple(entries []binding.Entry, now time.Time) ([]binding.Result, error) {
	if len(entries) > binding.MaxBatch {
		return nil, noiderr.New(noiderr.KindBadInput, "bindMultiple: %d entries exceeds max batch %d", len(entries), binding.MaxBatch)
	}
	results := make([]binding.Result, len(entries))
	s.mu.Lock()
	for i, entry := range entries {
		if entry.How == binding.Mint {
			// Nested mint: release, let Bind's own lock acquisition run the
			// whole mint+bind sequence, then re-acquire for the rest of the
			// batch.
			s.mu.Unlock()
			v, err := s.Bind(entry, now)
			s.mu.Lock()
			results[i] = binding.Result{Entry: entry, Value: v, Err: err}
			continue
		}
		v, err := s.Binding.Bind(entry, now)
		results[i] = binding.Result{Entry: entry, Value: v, Err: err}
	}
	s.mu.Unlock()
	return results, nil
}

// Fetch and FetchMultiple are read-only and do not require the write
// lock: reads are consistent because there is no concurrent mutation
// within the session.
func (s *Session) Fetch(id, elem string) ([]binding.FetchResult, error) {
	return s.Binding.Fetch(id, elem)
}

func (s *Session) FetchMultiple(ids []string, elem string) ([][]binding.FetchResult, error) {
	return s.Binding.FetchMultiple(ids, elem)
}
