package orders

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Line is one requested catalog item. UnitPrice is the price the client saw
// and is stored as the frozen order item price.
type Line struct {
	PosterID  int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type Request struct {
	Lines []Line
	Total decimal.Decimal
}

// Validate runs the checks that need no database access.
func (r Request) Validate() error {
	if len(r.Lines) == 0 {
		return &InvalidRequestError{Reason: "no items"}
	}
	for i, l := range r.Lines {
		if l.PosterID <= 0 {
			return &InvalidRequestError{Reason: fmt.Sprintf("item %d: missing poster id", i)}
		}
		if l.Quantity <= 0 {
			return &InvalidRequestError{Reason: fmt.Sprintf("item %d: quantity must be positive", i)}
		}
		if l.UnitPrice.IsNegative() {
			return &InvalidRequestError{Reason: fmt.Sprintf("item %d: price must not be negative", i)}
		}
	}
	if r.Total.IsNegative() {
		return &InvalidRequestError{Reason: "total must not be negative"}
	}
	return nil
}

// LinesTotal is sum(quantity * unit price).
func (r Request) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range r.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// demand aggregates quantities per poster. order keeps first-appearance order
// for error reporting, sorted is the lock order.
type demand struct {
	qty    map[int64]int
	order  []int64
	sorted []int64
}

func (r Request) demand() demand {
	d := demand{qty: make(map[int64]int, len(r.Lines))}
	for _, l := range r.Lines {
		if _, seen := d.qty[l.PosterID]; !seen {
			d.order = append(d.order, l.PosterID)
		}
		d.qty[l.PosterID] += l.Quantity
	}
	d.sorted = append([]int64(nil), d.order...)
	sort.Slice(d.sorted, func(i, j int) bool { return d.sorted[i] < d.sorted[j] })
	return d
}
