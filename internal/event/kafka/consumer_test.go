package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/event"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetchErrs []error
	committed []int64
	closed    int
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed++
	return nil
}

type fakeDispatcher struct {
	got []event.Event
}

func (d *fakeDispatcher) DispatchEnvelope(_ context.Context, env *event.Envelope) error {
	e, err := env.Decode()
	if err != nil {
		return err
	}
	d.got = append(d.got, e)
	return nil
}

func envelopeBytes(t *testing.T, e event.Event) []byte {
	t.Helper()
	env, err := event.NewEnvelope(e)
	require.NoError(t, err)
	data, err := env.Marshal()
	require.NoError(t, err)
	return data
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Offset: 1, Value: envelopeBytes(t, event.UnitCreated{UnitID: "u1"})},
			{Offset: 2, Value: []byte("garbage")},
			{Offset: 3, Value: []byte(`{"event_type":"booking.created","data":{}}`)},
			{Offset: 4, Value: envelopeBytes(t, event.PropertyDeleted{PropertyID: "p1"})},
		},
		fetchErrs: []error{errors.New("broker unavailable")},
	}
	d := &fakeDispatcher{}
	c := newConsumer(r, "inventory", d, zap.NewNop())

	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []event.Event{
		event.UnitCreated{UnitID: "u1"},
		event.PropertyDeleted{PropertyID: "p1"},
	}, d.got)
	assert.Equal(t, []int64{1, 2, 3, 4}, r.committed)
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_CloseIdempotent(t *testing.T) {
	r := &fakeReader{}
	c := newConsumer(r, "inventory", &fakeDispatcher{}, zap.NewNop())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}
