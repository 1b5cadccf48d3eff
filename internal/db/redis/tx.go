package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/staysearch/internal/db"
)

// Exec sends MULTI, the queued writes and EXEC as one pipeline.
func (s *Store) Exec(ctx context.Context, tx *db.Tx) error {
	if tx == nil || tx.Len() == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, tx.Len()+2)
	cmds = append(cmds, s.b().Multi().Build())
	for _, op := range tx.Ops() {
		cmd, err := s.buildOp(op)
		if err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}

	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) || isRedisErr(err, "execabort") {
			return &db.Error{Op: db.OpExec, Err: db.ErrTxAborted}
		}
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for i := range replies {
		if err := replies[i].Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("command %d: %w", i+1, err)}
		}
	}
	return nil
}

func (s *Store) buildOp(op db.TxOp) (rueidis.Completed, error) {
	switch op.Kind {
	case db.TxHSet:
		cmd := s.b().Hset().Key(op.Key).FieldValue()
		for k, v := range op.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		return cmd.Build(), nil
	case db.TxDel:
		return s.b().Del().Key(op.Keys...).Build(), nil
	case db.TxExpire:
		return s.b().Pexpire().Key(op.Key).Milliseconds(op.TTL.Milliseconds()).Build(), nil
	case db.TxPersist:
		return s.b().Persist().Key(op.Key).Build(), nil
	case db.TxSet:
		if op.TTL > 0 {
			return s.b().Set().Key(op.Key).Value(string(op.Value)).Px(op.TTL).Build(), nil
		}
		return s.b().Set().Key(op.Key).Value(string(op.Value)).Build(), nil
	case db.TxSAdd:
		return s.b().Sadd().Key(op.Key).Member(op.Members...).Build(), nil
	case db.TxSRem:
		return s.b().Srem().Key(op.Key).Member(op.Members...).Build(), nil
	case db.TxZAdd:
		return s.b().Zadd().Key(op.Key).ScoreMember().ScoreMember(op.Score, op.Members[0]).Build(), nil
	case db.TxZRem:
		return s.b().Zrem().Key(op.Key).Member(op.Members...).Build(), nil
	case db.TxGeoAdd:
		return s.b().Arbitrary("GEOADD").Keys(op.Key).Args(
			formatScore(op.Lon), formatScore(op.Lat), op.Members[0],
		).Build(), nil
	case db.TxRename:
		return s.b().Rename().Key(op.Key).Newkey(op.NewKey).Build(), nil
	default:
		return rueidis.Completed{}, fmt.Errorf("unsupported tx op %d", op.Kind)
	}
}
