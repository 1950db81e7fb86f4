/*
handlers.go - HTTP API handlers for the contract billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                    List all contracts
    POST   /api/contracts                    Create contract (optionally with schedule)
    GET    /api/contracts/{id}               Get contract details
    DELETE /api/contracts/{id}               Delete contract (?cascade=true removes payments)
    GET    /api/contracts/{id}/payments      List installments
    POST   /api/contracts/{id}/schedule      Generate installment schedule
    PUT    /api/contracts/{id}/status        Administrative status override

  Payments:
    GET    /api/payments/{id}                Get installment
    POST   /api/payments/{id}/pay            Mark fully paid at scheduled amount
    POST   /api/payments/{id}/manual-payment Apply manual payment
    POST   /api/payments/{id}/reset          Reset to pending (un-pay)

  Holidays:
    GET    /api/holidays                     List holidays
    POST   /api/holidays                     Create holiday
    DELETE /api/holidays/{id}                Delete holiday

  Sweeps:
    GET    /api/sweeps                       List overdue sweep runs
    POST   /api/sweeps/run                   Trigger a sweep now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid amounts, insufficient balance, double payment
  - 404: Contract or payment not found
  - 500: Schedule generation failures, storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - sweeper.go: Scheduled overdue sweeps
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/contract-engine/billing"
	"github.com/warp/contract-engine/money"
	"github.com/warp/contract-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Applicator *billing.Applicator

	// Sweeper is set when the scheduled sweep is enabled; used by the
	// manual trigger endpoint.
	Sweeper *Sweeper
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:      store,
		Applicator: billing.NewApplicator(store),
	}
}

// ReloadCalendar rebuilds the business-day calendar from stored holidays.
// Called at startup and after every holiday change.
func (h *Handler) ReloadCalendar(ctx context.Context) error {
	cal, err := h.Store.LoadCalendar(ctx)
	if err != nil {
		return err
	}
	h.Applicator.SetCalendar(cal)
	return nil
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all contracts.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns a single contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.Store.GetContract(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toContractDTO(*c))
}

// CreateContract creates a contract, optionally generating its schedule.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	value, err := money.Parse(req.Value)
	if err != nil || !value.IsPositive() {
		writeError(w, http.StatusBadRequest, "Contract value must be a positive amount", err)
		return
	}

	downPayment := money.Zero
	if req.DownPayment != "" {
		downPayment, err = money.Parse(req.DownPayment)
		if err != nil || downPayment.IsNegative() {
			writeError(w, http.StatusBadRequest, "Invalid down_payment", err)
			return
		}
	}
	if downPayment.GreaterThan(value) {
		writeError(w, http.StatusBadRequest, "down_payment cannot exceed value", nil)
		return
	}
	if req.NumberOfPayments < 0 {
		writeError(w, http.StatusBadRequest, "number_of_payments cannot be negative", nil)
		return
	}

	var startDate time.Time
	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	c := billing.Contract{
		ID:               id,
		ClientID:         req.ClientID,
		Value:            value,
		DownPayment:      downPayment,
		NumberOfPayments: req.NumberOfPayments,
		StartDate:        startDate,
		Status:           billing.ContractActive,
	}

	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create contract", err)
		return
	}

	if req.GenerateSchedule {
		if _, err := h.Applicator.GenerateSchedule(r.Context(), c.ID, req.PaymentMethod); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to generate schedule", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toContractDTO(c))
}

// DeleteContract removes a contract. Installments block deletion unless
// cascade=true, which removes them first.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if r.URL.Query().Get("cascade") == "true" {
		if err := h.Store.DeletePaymentsByContract(ctx, id); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to delete payments", err)
			return
		}
	}

	if err := h.Store.DeleteContract(ctx, id); err != nil {
		writeDomainError(w, err, "Failed to delete contract")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateContractStatus applies an administrative status override.
func (h *Handler) UpdateContractStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateContractStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status := billing.ContractStatus(req.Status)
	switch status {
	case billing.ContractActive, billing.ContractSettled, billing.ContractRenegotiated,
		billing.ContractCancelled, billing.ContractLegal:
	default:
		writeError(w, http.StatusBadRequest, "Unknown contract status", nil)
		return
	}

	if err := h.Store.UpdateContractStatus(r.Context(), id, status); err != nil {
		writeDomainError(w, err, "Failed to update status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContractPayments returns the installments of a contract.
func (h *Handler) ListContractPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	c, err := h.Store.GetContract(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	payments, err := h.Store.ListPaymentsByContract(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// GenerateSchedule builds and persists the contract's installment plan.
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req GenerateScheduleRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	payments, err := h.Applicator.GenerateSchedule(r.Context(), id, req.PaymentMethod)
	if err != nil {
		writeDomainError(w, err, "Failed to generate schedule")
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTOs(payments))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// GetPayment returns a single installment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.Store.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payment", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Payment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// MarkPaid settles an installment at exactly its scheduled amount.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.Applicator.MarkFullyPaid(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to apply payment")
		return
	}
	writeResult(w, result)
}

// ManualPayment applies a payment with explicit amount and optional credit use.
func (h *Handler) ManualPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ManualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	useCredit := money.Zero
	if req.UsePositiveBalance != "" {
		useCredit, err = money.Parse(req.UsePositiveBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid use_positive_balance", err)
			return
		}
	}

	result, err := h.Applicator.ApplyManualPayment(r.Context(), id, amount, useCredit, req.PaymentMethod)
	if err != nil {
		writeDomainError(w, err, "Failed to apply payment")
		return
	}
	writeResult(w, result)
}

// ResetPayment returns an installment to pending (un-pay).
func (h *Handler) ResetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.Applicator.ResetPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to reset payment")
		return
	}
	writeResult(w, result)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{ID: hd.ID, Date: hd.Date.Format("2006-01-02"), Name: hd.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday and reloads the calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Holiday name is required", nil)
		return
	}

	hd := sqlite.Holiday{ID: uuid.NewString(), Date: date, Name: req.Name}
	if err := h.Store.SaveHoliday(r.Context(), hd); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}

	if err := h.ReloadCalendar(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload calendar", err)
		return
	}

	writeJSON(w, http.StatusCreated, HolidayDTO{ID: hd.ID, Date: req.Date, Name: hd.Name})
}

// DeleteHoliday removes a holiday and reloads the calendar.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	if err := h.ReloadCalendar(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload calendar", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SWEEP HANDLERS
// =============================================================================

// ListSweepRuns returns recent overdue sweep runs.
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListSweepRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSweepRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeResult(w http.ResponseWriter, result *billing.Result) {
	writeJSON(w, http.StatusOK, PaymentResultDTO{
		Payment:         toPaymentDTO(result.Payment),
		ContractUpdated: result.ContractUpdated,
		Message:         result.Message,
	})
}

// writeDomainError maps billing errors onto HTTP statuses. Storage errors
// pass through as 500s without reinterpretation.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
