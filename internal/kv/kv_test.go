package kv_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/kv"
)

func openStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := openStore(t)

	v, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	v, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	ttl, err := s.TTL("k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, s.Delete("k"))
	ok, err := s.Exists("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Set("short", []byte("x"), time.Second))
	require.Eventually(t, func() bool {
		ok, err := s.Exists("short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestSetNX(t *testing.T) {
	s := openStore(t)

	first, err := s.SetNX("once", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.SetNX("once", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	v, _ := s.Get("once")
	assert.Equal(t, []byte("1"), v)
}

func TestSetNXConcurrentWritersStoreOnce(t *testing.T) {
	s := openStore(t)

	const writers = 16
	var (
		wg   sync.WaitGroup
		won  atomic.Int32
		errs = make(chan error, writers)
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.SetNX("rate:reset:amina@example.com", []byte("1"), time.Minute)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				won.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, won.Load())
}

func TestScanAndDeletePrefix(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Set("user_tokens:u1:a", []byte("1"), 0))
	require.NoError(t, s.Set("user_tokens:u1:b", []byte("1"), 0))
	require.NoError(t, s.Set("user_tokens:u2:c", []byte("1"), 0))

	got, err := s.Scan("user_tokens:u1:")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "user_tokens:u1:a")

	require.NoError(t, s.DeletePrefix("user_tokens:u1:"))
	got, err = s.Scan("user_tokens:")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestJSONHelpers(t *testing.T) {
	s := openStore(t)
	type payload struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, s.SetJSON("j", payload{IDs: []string{"a", "b"}}, time.Minute))

	var out payload
	ok, err := s.GetJSON("j", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, out.IDs)

	ok, err = s.GetJSON("nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}
