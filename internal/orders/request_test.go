package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		reason string
	}{
		{"no items", Request{}, "no items"},
		{"missing poster", Request{Lines: []Line{{Quantity: 1}}}, "item 0: missing poster id"},
		{"zero quantity", Request{Lines: []Line{{PosterID: 1, Quantity: 1}, {PosterID: 2}}}, "item 1: quantity must be positive"},
		{"negative price", Request{Lines: []Line{{PosterID: 1, Quantity: 1, UnitPrice: dec("-1")}}}, "item 0: price must not be negative"},
		{"negative total", Request{Lines: []Line{{PosterID: 1, Quantity: 1}}, Total: dec("-0.01")}, "total must not be negative"},
		{"ok", Request{Lines: []Line{{PosterID: 1, Quantity: 1, UnitPrice: dec("2")}}, Total: dec("2")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.reason == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.EqualError(t, err, tt.reason)
		})
	}
}

func TestLinesTotal(t *testing.T) {
	req := Request{Lines: []Line{
		{PosterID: 1, Quantity: 2, UnitPrice: dec("10.50")},
		{PosterID: 2, Quantity: 3, UnitPrice: dec("0.10")},
	}}
	assert.Equal(t, "21.30", req.LinesTotal().StringFixed(2))
}

func TestDemandAggregatesDuplicates(t *testing.T) {
	req := Request{Lines: []Line{
		{PosterID: 9, Quantity: 1},
		{PosterID: 3, Quantity: 2},
		{PosterID: 9, Quantity: 4},
	}}
	d := req.demand()
	assert.Equal(t, map[int64]int{9: 5, 3: 2}, d.qty)
	assert.Equal(t, []int64{9, 3}, d.order)
	assert.Equal(t, []int64{3, 9}, d.sorted)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("lost")
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseStatus("")
	require.ErrorIs(t, err, ErrInvalidRequest)

	assert.Equal(t, StatusPending, InitialStatus)
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPaid.Terminal())
}

func TestErrorKinds(t *testing.T) {
	driverErr := assert.AnError
	pe := persist("insert order", driverErr)

	assert.ErrorIs(t, pe, ErrPersistence)
	assert.ErrorIs(t, pe, driverErr)
	assert.NotErrorIs(t, pe, ErrNotFound)
	assert.EqualError(t, pe, "insert order: "+driverErr.Error())

	assert.ErrorIs(t, &ItemNotFoundError{PosterID: 4}, ErrItemNotFound)
	assert.EqualError(t, &ItemNotFoundError{PosterID: 4}, "poster 4 not found")
	assert.ErrorIs(t, &InsufficientStockError{}, ErrInsufficientStock)
	assert.NotErrorIs(t, &InsufficientStockError{}, ErrInvalidRequest)

	wrapped := classify(driverErr)
	assert.ErrorIs(t, wrapped, ErrPersistence)
	var p *PersistenceError
	require.ErrorAs(t, wrapped, &p)
	assert.Equal(t, "transaction", p.Op)

	kept := &InsufficientStockError{Title: "Moon"}
	assert.Same(t, kept, classify(kept))
	assert.NoError(t, classify(nil))
}
