package idempotency_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/linemk/tm-watch/internal/idempotency"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fp = "fingerprint-a"

func newStore(t *testing.T) (*idempotency.Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return idempotency.NewStore(client, time.Hour, time.Minute), mr
}

func TestReserve_FirstCallWins(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	key := store.Key("order", 1, "abc")

	resp, err := store.Reserve(ctx, key, fp)
	assert.NoError(t, err)
	assert.Nil(t, resp)

	resp, err = store.Reserve(ctx, key, fp)
	assert.ErrorIs(t, err, idempotency.ErrInProgress)
	assert.Nil(t, resp)
}

func TestReserve_ReplaysCompletedResponse(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	key := store.Key("order", 1, "abc")

	_, err := store.Reserve(ctx, key, fp)
	require.NoError(t, err)

	body := json.RawMessage(`{"orderId":7,"total":"250"}`)
	require.NoError(t, store.Complete(ctx, key, fp, idempotency.Response{Status: http.StatusCreated, Body: body}))

	resp, err := store.Reserve(ctx, key, fp)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, string(body), string(resp.Body))
}

func TestReserve_FingerprintMismatch(t *testing.T) {
	tests := []struct {
		name     string
		complete bool
	}{
		{name: "pending", complete: false},
		{name: "completed", complete: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t)
			ctx := context.Background()
			key := store.Key("order", 1, "abc")

			_, err := store.Reserve(ctx, key, fp)
			require.NoError(t, err)
			if tt.complete {
				require.NoError(t, store.Complete(ctx, key, fp, idempotency.Response{Status: http.StatusCreated, Body: json.RawMessage(`{}`)}))
			}

			resp, err := store.Reserve(ctx, key, "fingerprint-b")
			assert.ErrorIs(t, err, idempotency.ErrFingerprintMismatch)
			assert.Nil(t, resp)

			// чужой отпечаток не портит сохранённое состояние
			_, err = store.Reserve(ctx, key, fp)
			if tt.complete {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, idempotency.ErrInProgress)
			}
		})
	}
}

func TestRelease_AllowsRetry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	key := store.Key("order", 1, "abc")

	_, err := store.Reserve(ctx, key, fp)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, key))
	assert.False(t, mr.Exists(key))

	// после освобождения ключ можно занять и с другим телом
	resp, err := store.Reserve(ctx, key, "fingerprint-b")
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestKey_ScopedByUser(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, store.Key("order", 1, "same"), fp)
	require.NoError(t, err)

	resp, err := store.Reserve(ctx, store.Key("order", 2, "same"), fp)
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestReserve_PendingExpiresBeforeResponse(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	key := store.Key("order", 1, "abc")

	_, err := store.Reserve(ctx, key, fp)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(key))

	// запрос не дошёл ни до Complete, ни до Release: ключ освобождается по короткому сроку
	mr.FastForward(2 * time.Minute)

	resp, err := store.Reserve(ctx, key, fp)
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestComplete_KeepsResponseForFullTTL(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	key := store.Key("order", 1, "abc")

	_, err := store.Reserve(ctx, key, fp)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, key, fp, idempotency.Response{Status: http.StatusCreated, Body: json.RawMessage(`{}`)}))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(30 * time.Minute)
	resp, err := store.Reserve(ctx, key, fp)
	require.NoError(t, err)
	assert.NotNil(t, resp)

	mr.FastForward(time.Hour)
	resp, err = store.Reserve(ctx, key, fp)
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestFingerprint(t *testing.T) {
	type body struct {
		Items   []int  `json:"items"`
		Address string `json:"address"`
	}

	a, err := idempotency.Fingerprint(body{Items: []int{1, 2}, Address: "Moscow"})
	require.NoError(t, err)
	b, err := idempotency.Fingerprint(body{Items: []int{1, 2}, Address: "Moscow"})
	require.NoError(t, err)
	c, err := idempotency.Fingerprint(body{Items: []int{1, 3}, Address: "Moscow"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
