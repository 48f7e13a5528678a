package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsCreateGetAbandon(t *testing.T) {
	sessions := NewSessions(time.Minute)

	id, cart := sessions.Create()
	require.NotEmpty(t, id)
	require.NotNil(t, cart)

	got, err := sessions.Get(id)
	require.NoError(t, err)
	assert.Same(t, cart, got)

	require.NoError(t, sessions.Abandon(id))
	assert.ErrorIs(t, sessions.Abandon(id), ErrSessionNotFound)

	_, err = sessions.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionsSweepDropsIdleCarts(t *testing.T) {
	sessions := NewSessions(10 * time.Millisecond)

	idle, _ := sessions.Create()
	time.Sleep(20 * time.Millisecond)
	fresh, _ := sessions.Create()

	removed := sessions.Sweep()
	assert.Equal(t, 1, removed)

	_, err := sessions.Get(idle)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = sessions.Get(fresh)
	assert.NoError(t, err)
}

func TestSessionsGetRefreshesTTL(t *testing.T) {
	sessions := NewSessions(30 * time.Millisecond)

	id, _ := sessions.Create()
	time.Sleep(20 * time.Millisecond)

	_, err := sessions.Get(id)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sessions.Sweep())
}

func TestSessionsConcurrentAccess(t *testing.T) {
	sessions := NewSessions(time.Minute)
	catalog := fakeCatalog{
		"P1001": {Code: "P1001", Name: "Milk", Price: decimal.RequireFromString("2.50"), Quantity: 1000},
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, cart := sessions.Create()
			_, err := cart.AddItem(context.Background(), catalog, "P1001", 1)
			assert.NoError(t, err)
			_, err = sessions.Get(id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, sessions.Len())
}
