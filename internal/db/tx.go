package db

import "time"

// TxOpKind enumerates write operations allowed inside a transaction.
type TxOpKind int

// Transaction operation kinds.
const (
	TxHSet TxOpKind = iota + 1
	TxDel
	TxExpire
	TxPersist
	TxSet
	TxSAdd
	TxSRem
	TxZAdd
	TxZRem
	TxGeoAdd
	TxRename
)

// TxOp is a single queued write.
type TxOp struct {
	Kind    TxOpKind
	Key     string
	NewKey  string
	Keys    []string
	Fields  map[string]string
	Members []string
	Value   []byte
	Score   float64
	Lon     float64
	Lat     float64
	TTL     time.Duration
}

// Tx collects writes that a Transactor applies all-or-nothing.
type Tx struct {
	ops []TxOp
}

// NewTx starts an empty transaction.
func NewTx() *Tx { return &Tx{} }

// Ops returns queued operations in order.
func (t *Tx) Ops() []TxOp { return t.ops }

// Len returns the number of queued operations.
func (t *Tx) Len() int { return len(t.ops) }

// HSet replaces the listed hash fields.
func (t *Tx) HSet(key string, fields map[string]string) *Tx {
	return t.add(TxOp{Kind: TxHSet, Key: key, Fields: fields})
}

// Del deletes keys.
func (t *Tx) Del(keys ...string) *Tx {
	if len(keys) == 0 {
		return t
	}
	return t.add(TxOp{Kind: TxDel, Keys: keys})
}

// Expire sets a TTL on key.
func (t *Tx) Expire(key string, ttl time.Duration) *Tx {
	return t.add(TxOp{Kind: TxExpire, Key: key, TTL: ttl})
}

// Persist removes the TTL from key.
func (t *Tx) Persist(key string) *Tx {
	return t.add(TxOp{Kind: TxPersist, Key: key})
}

// Set stores a plain value. Zero ttl means no expiry.
func (t *Tx) Set(key string, value []byte, ttl time.Duration) *Tx {
	return t.add(TxOp{Kind: TxSet, Key: key, Value: value, TTL: ttl})
}

// SAdd adds members to a set.
func (t *Tx) SAdd(key string, members ...string) *Tx {
	if len(members) == 0 {
		return t
	}
	return t.add(TxOp{Kind: TxSAdd, Key: key, Members: members})
}

// SRem removes members from a set.
func (t *Tx) SRem(key string, members ...string) *Tx {
	if len(members) == 0 {
		return t
	}
	return t.add(TxOp{Kind: TxSRem, Key: key, Members: members})
}

// ZAdd sets the score of member.
func (t *Tx) ZAdd(key string, score float64, member string) *Tx {
	return t.add(TxOp{Kind: TxZAdd, Key: key, Score: score, Members: []string{member}})
}

// ZRem removes members from a sorted set.
func (t *Tx) ZRem(key string, members ...string) *Tx {
	if len(members) == 0 {
		return t
	}
	return t.add(TxOp{Kind: TxZRem, Key: key, Members: members})
}

// GeoAdd places member at lon/lat.
func (t *Tx) GeoAdd(key string, lon, lat float64, member string) *Tx {
	return t.add(TxOp{Kind: TxGeoAdd, Key: key, Lon: lon, Lat: lat, Members: []string{member}})
}

// Rename moves key to newKey, overwriting it.
func (t *Tx) Rename(key, newKey string) *Tx {
	return t.add(TxOp{Kind: TxRename, Key: key, NewKey: newKey})
}

func (t *Tx) add(op TxOp) *Tx {
	t.ops = append(t.ops, op)
	return t
}
