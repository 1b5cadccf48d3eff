package unitindex

import (
	"strconv"
	"strings"
)

// DefaultPrefix namespaces every key owned by the index.
const DefaultPrefix = "staysearch:"

// Keys builds the Index Store key layout under a prefix.
type Keys struct {
	prefix string
}

// NewKeys creates a key builder. An empty prefix falls back to DefaultPrefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

// Active holds the generation served to readers.
func (k Keys) Active() string { return k.prefix + "gen:active" }

// Building holds the generation under rebuild, with a lease TTL.
func (k Keys) Building() string { return k.prefix + "gen:building" }

// Stage is a temporary key for the staged-publish primitive.
func (k Keys) Stage(id string) string { return k.prefix + "stage:" + id }

// UnitLock is the per-unit indexing lock.
func (k Keys) UnitLock(unitID string) string { return k.prefix + "lock:unit:" + unitID }

// RebuildLock serializes full rebuilds.
func (k Keys) RebuildLock() string { return k.prefix + "lock:rebuild" }

// Gen returns the key builder of one generation.
func (k Keys) Gen(n int64) GenKeys {
	return GenKeys{base: k.prefix + "g" + strconv.FormatInt(n, 10) + ":"}
}

// GenKeys builds keys scoped to a single generation.
type GenKeys struct {
	base string
}

// Pattern matches every key of the generation.
func (g GenKeys) Pattern() string { return g.base + "*" }

// Unit is the document hash.
func (g GenKeys) Unit(id string) string { return g.base + "unit:" + id }

// All lists every indexed unit.
func (g GenKeys) All() string { return g.base + "idx:all" }

// Price scores units by effective price.
func (g GenKeys) Price() string { return g.base + "idx:price" }

// Geo positions units.
func (g GenKeys) Geo() string { return g.base + "idx:geo" }

// City groups units by normalized city.
func (g GenKeys) City(city string) string { return g.base + "idx:city:" + escape(city) }

// Amenity groups units offering an amenity.
func (g GenKeys) Amenity(id string) string { return g.base + "idx:amenity:" + escape(id) }

// UnitType groups units of a unit type.
func (g GenKeys) UnitType(id string) string { return g.base + "idx:utype:" + escape(id) }

// PropertyType groups units of a property type.
func (g GenKeys) PropertyType(id string) string { return g.base + "idx:ptype:" + escape(id) }

// Property groups units of a property.
func (g GenKeys) Property(id string) string { return g.base + "idx:property:" + escape(id) }

// Field groups units carrying a dynamic field.
func (g GenKeys) Field(name string) string { return g.base + "idx:field:" + escape(name) }

// Num scores units by a numeric dynamic field.
func (g GenKeys) Num(name string) string { return g.base + "idx:num:" + escape(name) }

var keyEscaper = strings.NewReplacer(" ", "_", "*", "_", "?", "_", "[", "_", "]", "_")

// escape keeps glob metacharacters out of keys so SCAN patterns stay exact.
func escape(s string) string { return keyEscaper.Replace(s) }
