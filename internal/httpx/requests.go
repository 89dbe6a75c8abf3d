package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-poster-orders/internal/orders"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const IdempotencyHeader = "Idempotency-Key"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validationMessage renders the first failed rule of a validator error.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// flexID accepts a catalog id as a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "null" || s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid poster id %s", b)
	}
	*f = flexID(n)
	return nil
}

type itemReq struct {
	PosterID int64           `json:"poster_id" validate:"gt=0"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price"`
}

// UnmarshalJSON accepts both {"poster_id": ...} and {"id": ...}; poster_id
// wins when both are present.
func (it *itemReq) UnmarshalJSON(b []byte) error {
	var raw struct {
		PosterID flexID          `json:"poster_id"`
		ID       flexID          `json:"id"`
		Quantity int             `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	it.PosterID = int64(raw.PosterID)
	if it.PosterID == 0 {
		it.PosterID = int64(raw.ID)
	}
	it.Quantity = raw.Quantity
	it.Price = raw.Price
	return nil
}

type createOrderReq struct {
	Items []itemReq       `json:"items" validate:"required,min=1,dive"`
	Total decimal.Decimal `json:"total"`
}

func (c createOrderReq) toDomain() orders.Request {
	lines := make([]orders.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, orders.Line{PosterID: it.PosterID, Quantity: it.Quantity, UnitPrice: it.Price})
	}
	return orders.Request{Lines: lines, Total: c.Total}
}

type createOrderResp struct {
	OrderID string `json:"orderId"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}
