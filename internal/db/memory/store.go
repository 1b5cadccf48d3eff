// Package memory is an in-process db.Store used by tests and the "memory" driver.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/staysearch/internal/db"
	"github.com/kailas-cloud/staysearch/internal/domain/geo"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kind int

const (
	kindString kind = iota + 1
	kindHash
	kindSet
	kindZSet
)

type geoPos struct{ lon, lat float64 }

type entry struct {
	kind     kind
	str      []byte
	hash     map[string]string
	set      map[string]struct{}
	zset     map[string]float64
	geo      map[string]geoPos
	expireAt time.Time
}

// Store keeps all keys in a single map guarded by one mutex.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time

	// failWith, when set, is returned by every operation.
	failWith error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]*entry), now: time.Now}
}

// WithClock overrides the clock used for TTL evaluation.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SetFailure makes every subsequent call return err (nil restores normal behavior).
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// TTL returns the remaining time to live of key, or -1 when it has none.
func (s *Store) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil || e.expireAt.IsZero() {
		return -1
	}
	return e.expireAt.Sub(s.now())
}

// Keys returns all live keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if s.lookup(k) != nil {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Ping checks connectivity.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failWith
}

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// --- hash ---

// HGetAll returns all fields of a hash.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: s.failWith}
	}
	out := make(map[string]string)
	if e := s.lookup(key); e != nil && e.kind == kindHash {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

// HGetAllMulti fetches several hashes.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		m, err := s.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes keys.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return &db.Error{Op: db.OpDel, Err: s.failWith}
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Scan returns keys matching a glob pattern.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpScan, Err: s.failWith}
	}
	var out []string
	for k := range s.data {
		if s.lookup(k) == nil {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- kv ---

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpGet, Err: s.failWith}
	}
	e := s.lookup(key)
	if e == nil || e.kind != kindString {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.str...), nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value; zero ttl means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return &db.Error{Op: db.OpSet, Err: s.failWith}
	}
	s.setString(key, value, ttl)
	return nil
}

// Expire sets a TTL on a key.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return &db.Error{Op: db.OpExpire, Err: s.failWith}
	}
	s.expire(key, ttl)
	return nil
}

// --- sets ---

// SMembers returns set members in sorted order.
func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpSMembers, Err: s.failWith}
	}
	e := s.lookup(key)
	if e == nil || e.kind != kindSet {
		return []string{}, nil
	}
	return sortedKeys(e.set), nil
}

// SInter intersects sets.
func (s *Store) SInter(_ context.Context, keys ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpSInter, Err: s.failWith}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	var acc map[string]struct{}
	for i, k := range keys {
		e := s.lookup(k)
		if e == nil || e.kind != kindSet {
			return []string{}, nil
		}
		if i == 0 {
			acc = make(map[string]struct{}, len(e.set))
			for m := range e.set {
				acc[m] = struct{}{}
			}
			continue
		}
		for m := range acc {
			if _, ok := e.set[m]; !ok {
				delete(acc, m)
			}
		}
	}
	return sortedKeys(acc), nil
}

// ZRangeByScore returns members with lo <= score <= hi, by score then member.
func (s *Store) ZRangeByScore(_ context.Context, key string, lo, hi float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpZRangeByScore, Err: s.failWith}
	}
	e := s.lookup(key)
	if e == nil || e.kind != kindZSet {
		return []string{}, nil
	}
	type scored struct {
		m string
		s float64
	}
	var hits []scored
	for m, sc := range e.zset {
		if sc >= lo && sc <= hi {
			hits = append(hits, scored{m, sc})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].s != hits[j].s {
			return hits[i].s < hits[j].s
		}
		return hits[i].m < hits[j].m
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out, nil
}

// GeoRadius returns members within radiusKm, nearest first.
func (s *Store) GeoRadius(_ context.Context, key string, lon, lat, radiusKm float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: s.failWith}
	}
	e := s.lookup(key)
	if e == nil || e.kind != kindZSet || e.geo == nil {
		return []string{}, nil
	}
	center := geo.Point{Lat: lat, Lon: lon}
	type hit struct {
		m string
		d float64
	}
	var hits []hit
	for m, p := range e.geo {
		d := center.DistanceKm(geo.Point{Lat: p.lat, Lon: p.lon})
		if d <= radiusKm {
			hits = append(hits, hit{m, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].d != hits[j].d {
			return hits[i].d < hits[j].d
		}
		return hits[i].m < hits[j].m
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out, nil
}

// --- locks ---

// AcquireLock sets key to token if absent.
func (s *Store) AcquireLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, &db.Error{Op: db.OpLock, Err: s.failWith}
	}
	if s.lookup(key) != nil {
		return false, nil
	}
	s.setString(key, []byte(token), ttl)
	return true, nil
}

// ReleaseLock deletes key if it still holds token.
func (s *Store) ReleaseLock(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return &db.Error{Op: db.OpUnlock, Err: s.failWith}
	}
	if e := s.lookup(key); e != nil && e.kind == kindString && string(e.str) == token {
		delete(s.data, key)
	}
	return nil
}

// RenewLock resets the TTL of key if it still holds token.
func (s *Store) RenewLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, &db.Error{Op: db.OpRenew, Err: s.failWith}
	}
	e := s.lookup(key)
	if e == nil || e.kind != kindString || string(e.str) != token {
		return false, nil
	}
	s.expire(key, ttl)
	return true, nil
}

// --- tx ---

// Exec applies all ops under the store mutex. Ops are validated first so a
// bad op leaves the store untouched.
func (s *Store) Exec(_ context.Context, tx *db.Tx) error {
	if tx == nil || tx.Len() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return &db.Error{Op: db.OpExec, Err: s.failWith}
	}
	for i, op := range tx.Ops() {
		if err := s.check(op); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}
	for _, op := range tx.Ops() {
		s.apply(op)
	}
	return nil
}

func (s *Store) check(op db.TxOp) error {
	want := map[db.TxOpKind]kind{
		db.TxHSet: kindHash, db.TxSAdd: kindSet, db.TxSRem: kindSet,
		db.TxZAdd: kindZSet, db.TxZRem: kindZSet, db.TxGeoAdd: kindZSet,
	}[op.Kind]
	if want != 0 {
		if e := s.lookup(op.Key); e != nil && e.kind != want {
			return fmt.Errorf("WRONGTYPE key %s", op.Key)
		}
	}
	switch op.Kind {
	case db.TxRename:
		if s.lookup(op.Key) == nil {
			return fmt.Errorf("no such key %s", op.Key)
		}
	case db.TxGeoAdd:
		if !geo.ValidateCoordinates(op.Lat, op.Lon) {
			return fmt.Errorf("invalid longitude,latitude pair %s,%s",
				strconv.FormatFloat(op.Lon, 'f', -1, 64), strconv.FormatFloat(op.Lat, 'f', -1, 64))
		}
	case db.TxHSet, db.TxDel, db.TxExpire, db.TxPersist, db.TxSet,
		db.TxSAdd, db.TxSRem, db.TxZAdd, db.TxZRem:
	default:
		return fmt.Errorf("unsupported tx op %d", op.Kind)
	}
	return nil
}

func (s *Store) apply(op db.TxOp) {
	switch op.Kind {
	case db.TxHSet:
		e := s.ensure(op.Key, kindHash)
		for k, v := range op.Fields {
			e.hash[k] = v
		}
	case db.TxDel:
		for _, k := range op.Keys {
			delete(s.data, k)
		}
	case db.TxExpire:
		s.expire(op.Key, op.TTL)
	case db.TxPersist:
		if e := s.lookup(op.Key); e != nil {
			e.expireAt = time.Time{}
		}
	case db.TxSet:
		s.setString(op.Key, op.Value, op.TTL)
	case db.TxSAdd:
		e := s.ensure(op.Key, kindSet)
		for _, m := range op.Members {
			e.set[m] = struct{}{}
		}
	case db.TxSRem:
		if e := s.lookup(op.Key); e != nil {
			for _, m := range op.Members {
				delete(e.set, m)
			}
			if len(e.set) == 0 {
				delete(s.data, op.Key)
			}
		}
	case db.TxZAdd:
		e := s.ensure(op.Key, kindZSet)
		e.zset[op.Members[0]] = op.Score
	case db.TxZRem:
		if e := s.lookup(op.Key); e != nil {
			for _, m := range op.Members {
				delete(e.zset, m)
				if e.geo != nil {
					delete(e.geo, m)
				}
			}
			if len(e.zset) == 0 {
				delete(s.data, op.Key)
			}
		}
	case db.TxGeoAdd:
		e := s.ensure(op.Key, kindZSet)
		if e.geo == nil {
			e.geo = make(map[string]geoPos)
		}
		e.geo[op.Members[0]] = geoPos{lon: op.Lon, lat: op.Lat}
		e.zset[op.Members[0]] = 0
	case db.TxRename:
		if e := s.lookup(op.Key); e != nil {
			delete(s.data, op.Key)
			s.data[op.NewKey] = e
		}
	}
}

// --- internals (mu held) ---

func (s *Store) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *Store) ensure(key string, k kind) *entry {
	if e := s.lookup(key); e != nil {
		return e
	}
	e := &entry{kind: k}
	switch k {
	case kindHash:
		e.hash = make(map[string]string)
	case kindSet:
		e.set = make(map[string]struct{})
	case kindZSet:
		e.zset = make(map[string]float64)
	}
	s.data[key] = e
	return e
}

func (s *Store) setString(key string, value []byte, ttl time.Duration) {
	e := &entry{kind: kindString, str: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.data[key] = e
}

func (s *Store) expire(key string, ttl time.Duration) {
	e := s.lookup(key)
	if e == nil {
		return
	}
	if ttl <= 0 {
		delete(s.data, key)
		return
	}
	e.expireAt = s.now().Add(ttl)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
