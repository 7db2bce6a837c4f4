package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/academyops/backoffice/internal/models"
	"github.com/academyops/backoffice/internal/platform"
	"github.com/academyops/backoffice/internal/reconcile"
	pkghttp "github.com/academyops/backoffice/pkg/http"
	"github.com/go-chi/chi/v5"
)

// PaymentsHandler serves the reconciled payments view and the pending-change
// workflow around it.
type PaymentsHandler struct {
	mirror    *reconcile.Mirror
	tracker   *reconcile.Tracker
	committer *reconcile.Committer
	logger    *slog.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler
func NewPaymentsHandler(mirror *reconcile.Mirror, tracker *reconcile.Tracker, committer *reconcile.Committer, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		mirror:    mirror,
		tracker:   tracker,
		committer: committer,
		logger:    logger,
	}
}

// PaymentRowResponse is one row of the joined enrollment/payment view
type PaymentRowResponse struct {
	StudentID  string  `json:"student_id"`
	CourseID   string  `json:"course_id"`
	PaymentKey string  `json:"payment_key"`
	PaymentID  string  `json:"payment_id,omitempty"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	IsNew      bool    `json:"is_new"`
	Dirty      bool    `json:"dirty"`
	Saving     bool    `json:"saving"`
}

// PendingChangeRequest represents the request body for staging a status edit
type PendingChangeRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	PaymentKey   string `json:"payment_key"`
	NewStatus    string `json:"new_status" validate:"required,oneof=pending confirmed error"`
	CourseID     string `json:"course_id"`
	IsNewPayment bool   `json:"is_new_payment"`
}

// PendingChangeResponse returns the change key the client commits with
type PendingChangeResponse struct {
	ChangeKey string `json:"change_key"`
	Pending   int    `json:"pending"`
}

// CommitResponse reports the outcome of a commit
type CommitResponse struct {
	Committed      bool   `json:"committed"`
	CreatedPayment bool   `json:"created_payment"`
	PaymentID      string `json:"payment_id,omitempty"`
	PriceMissing   bool   `json:"price_missing,omitempty"`
}

// List returns the joined view with pending edits overlaid
func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	views := reconcile.Project(h.mirror.Enrollments(), h.mirror.Payments())
	overlaid := h.tracker.Overlay(views)

	rows := make([]PaymentRowResponse, 0, len(overlaid))
	for _, view := range overlaid {
		rows = append(rows, PaymentRowResponse{
			StudentID:  view.Key.StudentID,
			CourseID:   view.Key.CourseID,
			PaymentKey: view.PaymentKey,
			PaymentID:  view.PaymentID,
			Status:     view.Status,
			Amount:     view.Amount,
			IsNew:      view.IsNew,
			Dirty:      view.Dirty,
			Saving:     view.Saving,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StudentID != rows[j].StudentID {
			return rows[i].StudentID < rows[j].StudentID
		}
		return rows[i].CourseID < rows[j].CourseID
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rows)
}

// SetPending stages a status edit and applies it optimistically
func (h *PaymentsHandler) SetPending(w http.ResponseWriter, r *http.Request) {
	var req PendingChangeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if req.IsNewPayment {
		if req.CourseID == "" {
			pkghttp.WriteBadRequest(w, "course_id is required for a new payment")
			return
		}
		if req.PaymentKey == "" {
			req.PaymentKey = models.VirtualPaymentKey(req.StudentID, req.CourseID)
		}
	} else if req.PaymentKey == "" {
		pkghttp.WriteBadRequest(w, "payment_key is required for an existing payment")
		return
	}

	key := h.committer.SetPending(models.PendingChange{
		StudentID:    req.StudentID,
		PaymentKey:   req.PaymentKey,
		NewStatus:    req.NewStatus,
		CourseID:     req.CourseID,
		IsNewPayment: req.IsNewPayment,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(PendingChangeResponse{ChangeKey: key, Pending: h.tracker.Len()})
}

// DiscardPending drops a staged edit and rolls the display back to server truth
func (h *PaymentsHandler) DiscardPending(w http.ResponseWriter, r *http.Request) {
	changeKey := chi.URLParam(r, "changeKey")

	if !h.tracker.Discard(changeKey) {
		pkghttp.WriteNotFound(w, "No pending change for that key")
		return
	}

	// The optimistic status may still be showing; refetch to undo it.
	if err := h.mirror.RefreshPayments(r.Context()); err != nil {
		h.logger.Warn("failed to refetch payments after discard", slog.Any("error", err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// Commit persists a staged edit to the platform backend
func (h *PaymentsHandler) Commit(w http.ResponseWriter, r *http.Request) {
	changeKey := chi.URLParam(r, "changeKey")

	result, err := h.committer.Commit(r.Context(), changeKey)
	if err != nil {
		var apiErr *platform.APIError
		switch {
		case errors.Is(err, models.ErrCommitInFlight):
			pkghttp.WriteConflict(w, "A save for this change is already in progress")
		case errors.As(err, &apiErr):
			pkghttp.WriteBadGateway(w, apiErr.Message)
		default:
			pkghttp.WriteBadGateway(w, "Platform backend unreachable")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CommitResponse{
		Committed:      result.Committed,
		CreatedPayment: result.CreatedPayment,
		PaymentID:      result.PaymentID,
		PriceMissing:   result.PriceMissing,
	})
}

// Refresh refetches all mirrored collections from the platform backend
func (h *PaymentsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.refreshAll(ctx); err != nil {
		pkghttp.WriteBadGateway(w, "Failed to refresh from platform backend")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentsHandler) refreshAll(ctx context.Context) error {
	if err := h.mirror.RefreshAll(ctx); err != nil {
		return err
	}
	if err := h.mirror.RefreshCatalog(ctx); err != nil {
		return err
	}
	return nil
}
