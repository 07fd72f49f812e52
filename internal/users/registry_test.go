package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_UpsertAndGet(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	registry.Upsert(User{
		TokenID:     "user-1",
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		CountryCode: "US",
	})

	user, ok := registry.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "Jane", user.FirstName)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NotNil(t, user.UPOs)

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_UpdatePreservesCreatedAtAndUPOs(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	registry.Upsert(User{TokenID: "user-2", FirstName: "Old"})
	registry.AddUPO("user-2", UPO{ID: "7001", CCToken: "cc-1"})

	before, _ := registry.Get("user-2")

	registry.Upsert(User{TokenID: "user-2", FirstName: "New", Email: "new@example.com"})

	after, ok := registry.Get("user-2")
	require.True(t, ok)
	assert.Equal(t, "New", after.FirstName)
	assert.Equal(t, "new@example.com", after.Email)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	require.Len(t, after.UPOs, 1)
	assert.Equal(t, "7001", after.UPOs[0].ID)
}

func TestRegistry_AddUPOCreatesUnknownUser(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	registry.AddUPO("external-user", UPO{ID: "8001", CCToken: "cc-2"})

	user, ok := registry.Get("external-user")
	require.True(t, ok)
	require.Len(t, user.UPOs, 1)
	assert.Equal(t, "8001", user.UPOs[0].ID)
	assert.False(t, user.UPOs[0].AddedAt.IsZero())
}

func TestRegistry_AddUPOKeepsExplicitTimestamp(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	added := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	registry.AddUPO("user-3", UPO{ID: "9001", AddedAt: added})

	user, _ := registry.Get("user-3")
	require.Len(t, user.UPOs, 1)
	assert.Equal(t, added, user.UPOs[0].AddedAt)
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	registry.Upsert(User{TokenID: "user-4"})
	registry.AddUPO("user-4", UPO{ID: "7002"})

	user, _ := registry.Get("user-4")
	user.FirstName = "mutated"
	user.UPOs[0].ID = "mutated"

	fresh, _ := registry.Get("user-4")
	assert.Empty(t, fresh.FirstName)
	assert.Equal(t, "7002", fresh.UPOs[0].ID)
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	assert.Empty(t, registry.List())

	registry.Upsert(User{TokenID: "a"})
	registry.Upsert(User{TokenID: "b"})

	listed := registry.List()
	assert.Len(t, listed, 2)
}
