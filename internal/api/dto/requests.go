// Package dto defines the request and response shapes of the HTTP API.
package dto

import (
	"github.com/shopspring/decimal"
)

// ReconcileRequest starts one reconciliation session. Invoice items arrive
// inline (already parsed by the caller or produced by the ingest endpoint);
// point-of-sale candidates are queried from the store by type and range.
type ReconcileRequest struct {
	Type       string               `json:"type"`
	RangeStart string               `json:"range_start"`
	RangeEnd   string               `json:"range_end"`
	CreatedBy  string               `json:"created_by,omitempty"`
	Items      []InvoiceItemRequest `json:"items"`
	Options    *OptionsRequest      `json:"options,omitempty"`
}

// InvoiceItemRequest is one invoice line in a reconcile request.
type InvoiceItemRequest struct {
	ID           string            `json:"id"`
	Date         string            `json:"date"`
	CustomerName string            `json:"customer_name"`
	ProductType  string            `json:"product_type,omitempty"`
	Quantity     int               `json:"quantity,omitempty"`
	UnitPrice    decimal.Decimal   `json:"unit_price,omitempty"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Notes        string            `json:"notes,omitempty"`
	RawSource    map[string]string `json:"raw_source,omitempty"`
}

// OptionsRequest overrides session tolerances; omitted fields keep the
// configured defaults.
type OptionsRequest struct {
	ToleranceAmount         *decimal.Decimal `json:"tolerance_amount,omitempty"`
	TolerancePercent        *decimal.Decimal `json:"tolerance_percent,omitempty"`
	NameSimilarityThreshold *float64         `json:"name_similarity_threshold,omitempty"`
}
