package match

import (
	"fmt"

	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// ScreenInvoiceItems filters out invoice items that must never reach the
// matcher. Each exclusion becomes a warning; the run itself continues.
func ScreenInvoiceItems(items []model.InvoiceItem) ([]model.InvoiceItem, []string) {
	valid := make([]model.InvoiceItem, 0, len(items))
	var warnings []string
	for _, item := range items {
		switch {
		case item.Date.IsZero():
			warnings = append(warnings, fmt.Sprintf("invoice item %s: %v: missing date", item.ID, model.ErrMalformedDate))
		case item.TotalAmount.IsNegative():
			warnings = append(warnings, fmt.Sprintf("invoice item %s: %v: negative amount %s", item.ID, model.ErrInvalidInputContract, item.TotalAmount))
		case item.Quantity < 0:
			warnings = append(warnings, fmt.Sprintf("invoice item %s: %v: negative quantity %d", item.ID, model.ErrInvalidInputContract, item.Quantity))
		default:
			valid = append(valid, item)
		}
	}
	return valid, warnings
}

// ScreenPosRecords enforces the store collaborator's contract defensively:
// voided rows and negative amounts or quantities are excluded with a warning.
func ScreenPosRecords(records []model.PosRecord) ([]model.PosRecord, []string) {
	valid := make([]model.PosRecord, 0, len(records))
	var warnings []string
	for _, rec := range records {
		switch {
		case rec.Voided:
			warnings = append(warnings, fmt.Sprintf("pos record %s: %v: voided record reached the engine", rec.ID, model.ErrInvalidInputContract))
		case rec.Date.IsZero():
			warnings = append(warnings, fmt.Sprintf("pos record %s: %v: missing date", rec.ID, model.ErrMalformedDate))
		case rec.TotalAmount.IsNegative():
			warnings = append(warnings, fmt.Sprintf("pos record %s: %v: negative amount %s", rec.ID, model.ErrInvalidInputContract, rec.TotalAmount))
		case rec.Quantity < 0:
			warnings = append(warnings, fmt.Sprintf("pos record %s: %v: negative quantity %d", rec.ID, model.ErrInvalidInputContract, rec.Quantity))
		default:
			valid = append(valid, rec)
		}
	}
	return valid, warnings
}
