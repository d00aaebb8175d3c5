package draft

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	o, caps := fixture(3)
	d, _ := New(o, caps, eligible)
	require.NoError(t, d.SetQuantity(o.Items[0].ID, 2))
	_, err := d.AttachImage(o.Items[0].ID, "a.png", pngBytes(t))
	require.NoError(t, err)

	_, err = s.Load(ctx, d.UserID, d.OrderID)
	assert.ErrorIs(t, err, ErrNoDraft)

	require.NoError(t, s.Save(ctx, d))

	got, err := s.Load(ctx, d.UserID, d.OrderID)
	require.NoError(t, err)
	assert.Equal(t, d.Lines[0].Quantity, got.Lines[0].Quantity)
	assert.Equal(t, d.Lines[0].Images[0].Data, got.Lines[0].Images[0].Data)

	require.NoError(t, s.Delete(ctx, d.UserID, d.OrderID))
	_, err = s.Load(ctx, d.UserID, d.OrderID)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	storeContract(t, NewRedisStore(client))
}

func TestRedisStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client)
	ctx := context.Background()
	d := &Draft{UserID: uuid.New(), OrderID: uuid.New()}
	require.NoError(t, s.Save(ctx, d))
	assert.Equal(t, DefaultTTL, mr.TTL(Key(d.UserID, d.OrderID)))

	mr.FastForward(DefaultTTL + time.Second)
	_, err := s.Load(ctx, d.UserID, d.OrderID)
	assert.ErrorIs(t, err, ErrNoDraft)
}
