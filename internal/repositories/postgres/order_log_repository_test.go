package postgres

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sundai-club/shop/internal/domain"
)

func TestBuildUpdate(t *testing.T) {
	status := domain.OrderStatusSubmitted
	orderID := int64(555)
	query, args, ok := buildUpdate(" rec-1 ", domain.OrderRecordUpdate{
		OrderStatus:       &status,
		PrintfulOrderID:   &orderID,
		PrintfulOrderData: map[string]any{"id": 555},
	})
	require.True(t, ok)
	assert.Equal(t,
		"UPDATE orders SET printful_order_id = $1, order_status = $2, printful_order_data = $3, updated_at = now() WHERE id = $4",
		query)
	require.Len(t, args, 4)
	assert.Equal(t, int64(555), args[0])
	assert.Equal(t, "submitted", args[1])
	assert.Equal(t, "rec-1", args[3])
}

func TestBuildUpdateSkipsEmpty(t *testing.T) {
	_, _, ok := buildUpdate("rec-1", domain.OrderRecordUpdate{})
	assert.False(t, ok)

	msg := "boom"
	_, _, ok = buildUpdate("  ", domain.OrderRecordUpdate{ErrorMessage: &msg})
	assert.False(t, ok)
}

func TestInsertArgsFillsCollections(t *testing.T) {
	args := insertArgs(domain.OrderRecord{StripeCheckoutSessionID: "cs_1"})
	require.Len(t, args, 26)
	assert.Equal(t, "cs_1", args[0])
	assert.Equal(t, map[string]any{}, args[6])
	assert.Equal(t, []map[string]any{}, args[14])
	assert.Equal(t, map[string]any{}, args[24])
	assert.Equal(t, 26, strings.Count(orderColumns, ",")-2, "insert covers every column but id and timestamps")
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Contains(t, names, "000001_create_orders.up.sql")
	assert.Contains(t, names, "000001_create_orders.down.sql")
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), " ")
	require.Error(t, err)
	require.Error(t, Migrate(nil, ""))
}
