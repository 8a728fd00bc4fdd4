package remote

import (
	"context"
	"testing"
	"time"

	"github.com/golang/snappy"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	in := domain.Snapshot{Revision: "01HX", Records: 2, Payload: []byte(`[{"id":"a"},{"id":"b"}]`), UpdatedAt: at}

	data, err := encode(in)
	require.NoError(t, err)

	out, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Revision, out.Revision)
	assert.Equal(t, 2, out.Records)
	assert.True(t, at.Equal(out.UpdatedAt))
	assert.JSONEq(t, string(in.Payload), string(out.Payload))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode([]byte("not snappy"))
	assert.Error(t, err)

	_, err = decode(snappy.Encode(nil, []byte("{")))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "shopbooks:corner-shop:sales", Key("corner-shop", "sales"))
	assert.Equal(t, "shopbooks:corner-shop:sales:lock", lockKey("corner-shop", "sales"))
}

func TestDisabledMirror(t *testing.T) {
	var m *Mirror
	assert.ErrorIs(t, m.Push(context.Background(), domain.Snapshot{}), domain.ErrMirrorDisabled)
	_, err := m.Pull(context.Background(), "a", "b")
	assert.ErrorIs(t, err, domain.ErrMirrorDisabled)
}

func TestPushUnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	err := New(client, nil).Push(context.Background(), domain.Snapshot{StoreKey: "s", Collection: "sales"})
	assert.Error(t, err)
}
