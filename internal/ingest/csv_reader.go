// Package ingest parses externally supplied invoice files into the
// normalized invoice line items the engine consumes. Malformed rows become
// warnings rather than failures: the run continues with whatever parsed.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/domain/normalize"
)

// column aliases accepted in invoice file headers, lowercased.
var columnAliases = map[string]string{
	"id":            "id",
	"invoice_id":    "id",
	"line_id":       "id",
	"date":          "date",
	"invoice_date":  "date",
	"customer":      "customer_name",
	"customer_name": "customer_name",
	"name":          "customer_name",
	"product":       "product_type",
	"product_type":  "product_type",
	"quantity":      "quantity",
	"qty":           "quantity",
	"unit_price":    "unit_price",
	"price":         "unit_price",
	"total":         "total_amount",
	"total_amount":  "total_amount",
	"amount":        "total_amount",
	"notes":         "notes",
}

// ReadInvoiceFile opens and parses an invoice CSV file.
func ReadInvoiceFile(path string) ([]model.InvoiceItem, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open invoice file %s: %w", path, err)
	}
	defer file.Close()
	return ReadInvoices(file)
}

// ReadInvoices parses invoice line items from CSV data. The first row is a
// header; unknown columns are preserved in each item's RawSource but
// otherwise ignored. Rows missing a parsable date or total amount are
// skipped with a warning.
func ReadInvoices(r io.Reader) ([]model.InvoiceItem, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read invoice header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		columns[i] = columnAliases[key]
		if columns[i] == "" {
			columns[i] = key
		}
	}

	var items []model.InvoiceItem
	var warnings []string
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invoice line %d: unreadable row: %v", line, err))
			continue
		}

		raw := make(map[string]string, len(record))
		for i, value := range record {
			if i < len(columns) {
				raw[columns[i]] = strings.TrimSpace(value)
			}
		}

		item, warn := buildItem(raw, line)
		if warn != "" {
			warnings = append(warnings, warn)
			continue
		}
		items = append(items, item)
	}
	return items, warnings, nil
}

func buildItem(raw map[string]string, line int) (model.InvoiceItem, string) {
	item := model.InvoiceItem{
		ID:           raw["id"],
		CustomerName: raw["customer_name"],
		ProductType:  raw["product_type"],
		Notes:        raw["notes"],
		RawSource:    raw,
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("line-%d", line)
	}

	date, err := normalize.Date(raw["date"])
	if err != nil {
		return model.InvoiceItem{}, fmt.Sprintf("invoice line %d: %v", line, err)
	}
	item.Date = date

	total, err := normalize.Amount(raw["total_amount"])
	if err != nil {
		return model.InvoiceItem{}, fmt.Sprintf("invoice line %d: %v", line, err)
	}
	item.TotalAmount = total

	if qty := raw["quantity"]; qty != "" {
		n, err := strconv.Atoi(qty)
		if err != nil {
			return model.InvoiceItem{}, fmt.Sprintf("invoice line %d: %v: quantity %q", line, model.ErrMalformedAmount, qty)
		}
		item.Quantity = n
	}

	if price := raw["unit_price"]; price != "" {
		p, err := normalize.Amount(price)
		if err != nil {
			return model.InvoiceItem{}, fmt.Sprintf("invoice line %d: %v", line, err)
		}
		item.UnitPrice = p
	} else {
		item.UnitPrice = decimal.Zero
	}

	return item, ""
}
