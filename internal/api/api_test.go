package api

import (
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/backoffice/internal/apperr"
)

func TestCreateOrderRequest_Domain(t *testing.T) {
	var req CreateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"tableNumber": 3,
		"items": [{"menuItem": "a", "quantity": 2, "price": 4.50}],
		"totalAmount": 9
	}`), &req))

	got, err := req.Domain()
	require.NoError(t, err)
	assert.Equal(t, 3, got.TableNumber)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "a", got.Items[0].MenuItemID)
	assert.True(t, decimal.RequireFromString("4.5").Equal(got.Items[0].Price))
}

func TestCreateOrderRequest_DomainMissingPrice(t *testing.T) {
	var req CreateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"tableNumber": 3,
		"items": [{"menuItem": "a", "quantity": 1, "price": 0}, {"menuItem": "b", "quantity": 1}],
		"totalAmount": 0
	}`), &req))

	_, err := req.Domain()
	require.True(t, apperr.IsValidation(err))

	var invalid *apperr.ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "items", invalid.Field)
	assert.Equal(t, "item 1: price is required", invalid.Message)
}
