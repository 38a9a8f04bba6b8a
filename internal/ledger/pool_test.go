package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingConnector wraps a real bridge-backed client, counting sessions.
type countingConnector struct {
	client   *Client
	connects int64
}

func (c *countingConnector) Connect(ctx context.Context, identity Identity) (*Connection, error) {
	atomic.AddInt64(&c.connects, 1)
	return c.client.Connect(ctx, identity)
}

func newPoolFixture(t *testing.T) (*Pool, *countingConnector, func()) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "sess-1"})
		}
	})
	server := httptest.NewServer(mux)
	connector := &countingConnector{client: NewClient(bridgeConfig(server.URL), nil)}
	pool := NewPool(connector, 2, nil)
	return pool, connector, func() {
		pool.Close()
		server.Close()
	}
}

func TestPoolReusesReleasedConnection(t *testing.T) {
	pool, connector, cleanup := newPoolFixture(t)
	defer cleanup()

	identity := Identity{ID: "faculty-1", MSPID: "UniversityMSP"}
	conn, err := pool.Acquire(context.Background(), identity)
	require.NoError(t, err)
	pool.Release(identity, conn)

	again, err := pool.Acquire(context.Background(), identity)
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.EqualValues(t, 1, connector.connects)
	pool.Release(identity, again)
}

func TestPoolSeparatesIdentities(t *testing.T) {
	pool, connector, cleanup := newPoolFixture(t)
	defer cleanup()

	a, err := pool.Acquire(context.Background(), Identity{ID: "a"})
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background(), Identity{ID: "b"})
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.EqualValues(t, 2, connector.connects)
}

func TestPoolWithConnectionReleasesOnError(t *testing.T) {
	pool, connector, cleanup := newPoolFixture(t)
	defer cleanup()

	identity := Identity{ID: "a"}
	wantErr := errors.New("business failure")
	err := pool.WithConnection(context.Background(), identity, func(Conn) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// the failed lease must be back in the pool
	err = pool.WithConnection(context.Background(), identity, func(Conn) error { return nil })
	require.NoError(t, err)
	assert.EqualValues(t, 1, connector.connects)
}

func TestPoolInvalidateDropsIdleSessions(t *testing.T) {
	pool, connector, cleanup := newPoolFixture(t)
	defer cleanup()

	identity := Identity{ID: "a"}
	conn, err := pool.Acquire(context.Background(), identity)
	require.NoError(t, err)
	pool.Release(identity, conn)

	pool.Invalidate(identity)

	_, err = pool.Acquire(context.Background(), identity)
	require.NoError(t, err)
	assert.EqualValues(t, 2, connector.connects)
}
