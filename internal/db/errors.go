package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrTxAborted   = errors.New("db: transaction aborted")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpDel           = "DEL"
	OpHGetAll       = "HGETALL"
	OpScan          = "SCAN"
	OpGet           = "GET"
	OpSet           = "SET"
	OpExpire        = "EXPIRE"
	OpSMembers      = "SMEMBERS"
	OpSInter        = "SINTER"
	OpZRangeByScore = "ZRANGEBYSCORE"
	OpGeoSearch     = "GEOSEARCH"
	OpLock          = "SET NX"
	OpUnlock        = "UNLOCK"
	OpRenew         = "RENEW"
	OpExec          = "EXEC"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
