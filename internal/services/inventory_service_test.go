package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/repos"
	"modestwear/internal/services"
)

func TestInventoryService_Availability(t *testing.T) {
	e := newEnv(t)
	e.category("hijabs")
	e.product("plenty", "hijabs", "10", 9)
	e.product("few", "hijabs", "10", 5)
	e.product("none", "hijabs", "10", 0)

	for id, want := range map[string]string{"v-plenty": "IN_STOCK", "v-few": "LOW_STOCK", "v-none": "OUT_OF_STOCK"} {
		a, err := e.inventory.Availability(e.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, a.Status, id)
	}
	_, err := e.inventory.Availability(e.ctx, "v-ghost")
	assert.ErrorIs(t, err, repos.ErrNotFound)
}

func TestInventoryService_RestockAndScan(t *testing.T) {
	e := newEnv(t)
	e.category("hijabs")
	e.product("plenty", "hijabs", "10", 9)
	e.product("few", "hijabs", "10", 2)

	items, err := e.inventory.ScanLowStock(e.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v-few", items[0].VariantID)
	alerts := e.mail.byTemplate("low_stock")
	require.Len(t, alerts, 1)
	assert.Equal(t, "ops@modestwear.test", alerts[0].To)

	_, err = e.inventory.Restock(e.ctx, "v-few", 0)
	assert.ErrorIs(t, err, services.ErrInvalid)
	_, err = e.inventory.Restock(e.ctx, "v-ghost", 3)
	assert.ErrorIs(t, err, repos.ErrNotFound)
	n, err := e.inventory.Restock(e.ctx, "v-few", 10)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	items, err = e.inventory.ScanLowStock(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Len(t, e.mail.byTemplate("low_stock"), 1, "no alert when nothing is low")
}
