package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, traceID, orderID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       payload,
	}
}

type ItemPrice struct {
	PosterID int64           `json:"poster_id"`
	Qty      int             `json:"qty"`
	Price    decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID  string          `json:"order_id"`
	UserID   int64           `json:"user_id"`
	Username string          `json:"username,omitempty"`
	Items    []ItemPrice     `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Status   Status          `json:"status"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Status  Status `json:"status"`
}

func toItemPrices(lines []Line) []ItemPrice {
	out := make([]ItemPrice, 0, len(lines))
	for _, l := range lines {
		out = append(out, ItemPrice{PosterID: l.PosterID, Qty: l.Quantity, Price: l.UnitPrice})
	}
	return out
}
