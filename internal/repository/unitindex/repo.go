// Package unitindex stores unit search documents and their secondary
// structures in the Index Store, scoped by generation.
package unitindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/staysearch/internal/db"
	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// store is the consumer interface for the unit index (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
	ZRangeByScore(ctx context.Context, key string, lo, hi float64) ([]string, error)
	GeoRadius(ctx context.Context, key string, lon, lat, radiusKm float64) ([]string, error)
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	RenewLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Exec(ctx context.Context, tx *db.Tx) error
}

// Repo implements the indexing and search repositories over one Index Store.
type Repo struct {
	store   store
	keys    Keys
	docTTL  time.Duration
	tempTTL time.Duration
}

// New creates a unit index repository.
func New(s store, prefix string, docTTL, tempTTL time.Duration) *Repo {
	return &Repo{
		store:   s,
		keys:    NewKeys(prefix),
		docTTL:  docTTL,
		tempTTL: tempTTL,
	}
}

// Keys exposes the key layout.
func (r *Repo) Keys() Keys { return r.keys }

// Get returns the document of unitID in generation gen.
func (r *Repo) Get(ctx context.Context, gen int64, unitID string) (*unit.Document, error) {
	key := r.keys.Gen(gen).Unit(unitID)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	doc, err := decodeDocument(m)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// GetMany returns documents in the order of ids, skipping missing ones.
func (r *Repo) GetMany(ctx context.Context, gen int64, ids []string) ([]*unit.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	gk := r.keys.Gen(gen)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gk.Unit(id)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi gen %d: %w", gen, err)
	}
	out := make([]*unit.Document, 0, len(maps))
	for i, m := range maps {
		doc, err := decodeDocument(m)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", ids[i], err)
		}
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Put writes doc and its secondary entries atomically. prev, when non-nil,
// is the currently stored document whose secondary entries are dropped first.
func (r *Repo) Put(ctx context.Context, gen int64, doc, prev *unit.Document) error {
	fields, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	gk := r.keys.Gen(gen)
	key := gk.Unit(doc.UnitID)

	tx := db.NewTx()
	if prev != nil {
		unlinkSecondary(tx, gk, prev)
	}
	tx.Del(key).
		HSet(key, fields).
		Expire(key, r.docTTL)
	linkSecondary(tx, gk, doc)

	if err := r.store.Exec(ctx, tx); err != nil {
		return fmt.Errorf("put unit %s gen %d: %w", doc.UnitID, gen, err)
	}
	return nil
}

// Touch refreshes the document TTL without rewriting it.
func (r *Repo) Touch(ctx context.Context, gen int64, unitID string) error {
	key := r.keys.Gen(gen).Unit(unitID)
	if err := r.store.Expire(ctx, key, r.docTTL); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// Remove deletes the document of unitID and every secondary entry known for it.
// prev may be nil when the document already expired; id-keyed structures are
// cleaned regardless.
func (r *Repo) Remove(ctx context.Context, gen int64, unitID, propertyID string, prev *unit.Document) error {
	gk := r.keys.Gen(gen)
	tx := db.NewTx()
	if prev != nil {
		unlinkSecondary(tx, gk, prev)
	} else {
		tx.SRem(gk.All(), unitID).
			ZRem(gk.Price(), unitID).
			ZRem(gk.Geo(), unitID)
	}
	if propertyID != "" {
		tx.SRem(gk.Property(propertyID), unitID)
	}
	tx.Del(gk.Unit(unitID))

	if err := r.store.Exec(ctx, tx); err != nil {
		return fmt.Errorf("remove unit %s gen %d: %w", unitID, gen, err)
	}
	return nil
}

// UnitsByProperty lists indexed units of a property.
func (r *Repo) UnitsByProperty(ctx context.Context, gen int64, propertyID string) ([]string, error) {
	return r.members(ctx, r.keys.Gen(gen).Property(propertyID))
}

// UnitsByType lists indexed units of a unit type.
func (r *Repo) UnitsByType(ctx context.Context, gen int64, unitTypeID string) ([]string, error) {
	return r.members(ctx, r.keys.Gen(gen).UnitType(unitTypeID))
}

// UnitsWithField lists indexed units of a unit type that carry a dynamic field.
func (r *Repo) UnitsWithField(ctx context.Context, gen int64, unitTypeID, field string) ([]string, error) {
	gk := r.keys.Gen(gen)
	ids, err := r.store.SInter(ctx, gk.UnitType(unitTypeID), gk.Field(field))
	if err != nil {
		return nil, fmt.Errorf("units of type %s with field %s: %w", unitTypeID, field, err)
	}
	return ids, nil
}

func (r *Repo) members(ctx context.Context, key string) ([]string, error) {
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return ids, nil
}

// --- generations ---

// ActiveGeneration returns the generation served to readers (1 when unset).
func (r *Repo) ActiveGeneration(ctx context.Context) (int64, error) {
	gen, ok, err := r.readGeneration(ctx, r.keys.Active())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return gen, nil
}

// BuildingGeneration returns the generation under rebuild, if any.
func (r *Repo) BuildingGeneration(ctx context.Context) (int64, bool, error) {
	return r.readGeneration(ctx, r.keys.Building())
}

// WriteGenerations returns every generation an incremental write must reach:
// the active one and, during a rebuild, the building one.
func (r *Repo) WriteGenerations(ctx context.Context) ([]int64, error) {
	active, err := r.ActiveGeneration(ctx)
	if err != nil {
		return nil, err
	}
	building, ok, err := r.BuildingGeneration(ctx)
	if err != nil {
		return nil, err
	}
	if ok && building != active {
		return []int64{active, building}, nil
	}
	return []int64{active}, nil
}

// BeginBuild allocates the next generation, wipes any leftovers of it and
// announces it as the building generation for lease.
func (r *Repo) BeginBuild(ctx context.Context, lease time.Duration) (int64, error) {
	active, err := r.ActiveGeneration(ctx)
	if err != nil {
		return 0, err
	}
	next := active + 1
	if err := r.PurgeGeneration(ctx, next); err != nil {
		return 0, err
	}
	val := []byte(strconv.FormatInt(next, 10))
	if err := r.store.SetWithTTL(ctx, r.keys.Building(), val, lease); err != nil {
		return 0, fmt.Errorf("announce building generation %d: %w", next, err)
	}
	return next, nil
}

// RenewBuild extends the building marker of gen by lease. It fails with
// domain.ErrLeaseLost when the marker expired or names another generation.
func (r *Repo) RenewBuild(ctx context.Context, gen int64, lease time.Duration) error {
	key := r.keys.Building()
	ok, err := r.store.RenewLock(ctx, key, strconv.FormatInt(gen, 10), lease)
	if err != nil {
		return fmt.Errorf("renew building generation %d: %w", gen, err)
	}
	if !ok {
		return fmt.Errorf("building generation %d: %w", gen, domain.ErrLeaseLost)
	}
	return nil
}

// Cutover publishes gen as active, ends the build and drops the old generation.
func (r *Repo) Cutover(ctx context.Context, gen int64) (int64, error) {
	old, err := r.ActiveGeneration(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.Publish(ctx, r.keys.Active(), []byte(strconv.FormatInt(gen, 10))); err != nil {
		return 0, fmt.Errorf("publish generation %d: %w", gen, err)
	}
	if err := r.store.Del(ctx, r.keys.Building()); err != nil {
		return old, fmt.Errorf("clear building generation: %w", err)
	}
	if old != gen {
		if err := r.PurgeGeneration(ctx, old); err != nil {
			return old, err
		}
	}
	return old, nil
}

// AbortBuild ends the build and drops everything written into gen.
// It uses a fresh context so a cancelled rebuild still cleans up.
func (r *Repo) AbortBuild(ctx context.Context, gen int64) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.store.Del(ctx, r.keys.Building()); err != nil {
		return fmt.Errorf("clear building generation: %w", err)
	}
	return r.PurgeGeneration(ctx, gen)
}

// PurgeGeneration deletes every key of gen.
func (r *Repo) PurgeGeneration(ctx context.Context, gen int64) error {
	pattern := r.keys.Gen(gen).Pattern()
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}
	const chunk = 500
	for i := 0; i < len(keys); i += chunk {
		end := min(i+chunk, len(keys))
		if err := r.store.Del(ctx, keys[i:end]...); err != nil {
			return fmt.Errorf("purge generation %d: %w", gen, err)
		}
	}
	return nil
}

func (r *Repo) readGeneration(ctx context.Context, key string) (int64, bool, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get %s: %w", key, err)
	}
	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return gen, true, nil
}

// --- secondary structures ---

func linkSecondary(tx *db.Tx, gk GenKeys, d *unit.Document) {
	id := d.UnitID
	tx.SAdd(gk.All(), id).
		ZAdd(gk.Price(), d.Price, id).
		SAdd(gk.Property(d.PropertyID), id)
	if d.Location().Valid() {
		tx.GeoAdd(gk.Geo(), d.Longitude, d.Latitude, id)
	}
	if d.City != "" {
		tx.SAdd(gk.City(d.City), id)
	}
	if d.UnitTypeID != "" {
		tx.SAdd(gk.UnitType(d.UnitTypeID), id)
	}
	if d.PropertyTypeID != "" {
		tx.SAdd(gk.PropertyType(d.PropertyTypeID), id)
	}
	for _, a := range d.Amenities {
		tx.SAdd(gk.Amenity(a), id)
	}
	for name, v := range d.Fields {
		tx.SAdd(gk.Field(name), id)
		if v.Kind == unit.FieldNumber {
			tx.ZAdd(gk.Num(name), v.Number, id)
		}
	}
}

func unlinkSecondary(tx *db.Tx, gk GenKeys, d *unit.Document) {
	id := d.UnitID
	tx.SRem(gk.All(), id).
		ZRem(gk.Price(), id).
		ZRem(gk.Geo(), id).
		SRem(gk.Property(d.PropertyID), id)
	if d.City != "" {
		tx.SRem(gk.City(d.City), id)
	}
	if d.UnitTypeID != "" {
		tx.SRem(gk.UnitType(d.UnitTypeID), id)
	}
	if d.PropertyTypeID != "" {
		tx.SRem(gk.PropertyType(d.PropertyTypeID), id)
	}
	for _, a := range d.Amenities {
		tx.SRem(gk.Amenity(a), id)
	}
	for name, v := range d.Fields {
		tx.SRem(gk.Field(name), id)
		if v.Kind == unit.FieldNumber {
			tx.ZRem(gk.Num(name), id)
		}
	}
}
