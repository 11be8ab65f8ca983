package grpc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/connectivity"
)

func TestPool_ReusesConnection(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	a, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	b, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.GetConnection("passthrough:///ledger-b")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, p.Len())
}

func TestPool_ConcurrentGet(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.GetConnection("passthrough:///ledger")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.Len())
}

func TestPool_ReplacesShutdownConnection(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	first, err := p.GetConnection("passthrough:///ledger")
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.Equal(t, connectivity.Shutdown, first.GetState())

	second, err := p.GetConnection("passthrough:///ledger")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestPool_Close(t *testing.T) {
	p := NewPool()
	conn, err := p.GetConnection("passthrough:///ledger")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, connectivity.Shutdown, conn.GetState())
}
