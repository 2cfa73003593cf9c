package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reconware/pos-reconcile-backend/internal/api/dto"
	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/domain/normalize"
)

// ReconcileHandler runs reconciliation sessions.
type ReconcileHandler struct {
	orchestrator *reconcile.Orchestrator
	defaults     model.Options
}

// NewReconcileHandler creates the handler with the configured default
// tolerances; requests may override them per session.
func NewReconcileHandler(orchestrator *reconcile.Orchestrator, defaults model.Options) *ReconcileHandler {
	return &ReconcileHandler{orchestrator: orchestrator, defaults: defaults}
}

// Create handles POST /api/reconcile.
func (h *ReconcileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := h.buildInput(req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	session, err := h.orchestrator.Run(r.Context(), input)
	switch {
	case errors.Is(err, model.ErrInvalidConfiguration):
		WriteError(w, http.StatusBadRequest, "invalid configuration", err.Error())
		return
	case errors.Is(err, model.ErrCollaboratorUnavailable):
		// The failed session is returned so the caller can see its state.
		WriteJSON(w, http.StatusBadGateway, session)
		return
	case err != nil:
		WriteError(w, http.StatusInternalServerError, "reconciliation failed", err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, session)
}

func (h *ReconcileHandler) buildInput(req dto.ReconcileRequest) (reconcile.RunInput, error) {
	start, err := normalize.Date(req.RangeStart)
	if err != nil {
		return reconcile.RunInput{}, err
	}
	end, err := normalize.Date(req.RangeEnd)
	if err != nil {
		return reconcile.RunInput{}, err
	}

	items := make([]model.InvoiceItem, 0, len(req.Items))
	var warnings []string
	for _, it := range req.Items {
		date, err := normalize.Date(it.Date)
		if err != nil {
			warnings = append(warnings, "invoice item "+it.ID+": "+err.Error())
			continue
		}
		items = append(items, model.InvoiceItem{
			ID:           it.ID,
			Date:         date,
			CustomerName: it.CustomerName,
			ProductType:  it.ProductType,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalAmount:  it.TotalAmount,
			Notes:        it.Notes,
			RawSource:    it.RawSource,
		})
	}

	opts := h.defaults
	if req.Options != nil {
		if req.Options.ToleranceAmount != nil {
			opts.ToleranceAmount = *req.Options.ToleranceAmount
		}
		if req.Options.TolerancePercent != nil {
			opts.TolerancePercent = *req.Options.TolerancePercent
		}
		if req.Options.NameSimilarityThreshold != nil {
			opts.NameSimilarityThreshold = *req.Options.NameSimilarityThreshold
		}
	}

	return reconcile.RunInput{
		Type:           model.ReconciliationType(req.Type),
		RangeStart:     start,
		RangeEnd:       end,
		CreatedBy:      req.CreatedBy,
		InvoiceItems:   items,
		IngestWarnings: warnings,
		Options:        opts,
	}, nil
}
