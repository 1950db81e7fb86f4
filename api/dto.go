/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY REPRESENTATION:
  Amounts cross the wire as fixed two-decimal strings ("1500.00"), never as
  JSON numbers, so no float ever touches a monetary value. Requests are
  parsed with money.Parse, which rejects sub-cent precision.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain model
*/
package api

import (
	"time"

	"github.com/warp/contract-engine/billing"
	"github.com/warp/contract-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID               string `json:"id"`
	ClientID         string `json:"client_id,omitempty"`
	Value            string `json:"value"`
	DownPayment      string `json:"down_payment"`
	NumberOfPayments int    `json:"number_of_payments"`
	StartDate        string `json:"start_date,omitempty"`
	PositiveBalance  string `json:"positive_balance"`
	NegativeBalance  string `json:"negative_balance"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateContractRequest is the request to create a contract.
type CreateContractRequest struct {
	ID               string `json:"id,omitempty"`
	ClientID         string `json:"client_id"`
	Value            string `json:"value"`
	DownPayment      string `json:"down_payment,omitempty"`
	NumberOfPayments int    `json:"number_of_payments"`
	StartDate        string `json:"start_date,omitempty"` // YYYY-MM-DD

	// When true the installment schedule is generated immediately.
	GenerateSchedule bool   `json:"generate_schedule,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
}

// UpdateContractStatusRequest is the administrative status override.
type UpdateContractStatusRequest struct {
	Status string `json:"status"`
}

// PaymentDTO represents an installment in API responses.
type PaymentDTO struct {
	ID            string `json:"id"`
	ContractID    string `json:"contract_id"`
	Amount        string `json:"amount"`
	PaidAmount    string `json:"paid_amount,omitempty"`
	DueDate       string `json:"due_date"`
	PaidDate      string `json:"paid_date,omitempty"`
	Status        string `json:"status"`
	PaymentType   string `json:"payment_type"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// GenerateScheduleRequest triggers installment generation for a contract.
type GenerateScheduleRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

// ManualPaymentRequest is the request to apply a manual payment.
type ManualPaymentRequest struct {
	Amount             string `json:"amount"`
	UsePositiveBalance string `json:"use_positive_balance,omitempty"`
	PaymentMethod      string `json:"payment_method,omitempty"`
}

// PaymentResultDTO is returned by every payment-facing operation.
type PaymentResultDTO struct {
	Payment         PaymentDTO `json:"payment"`
	ContractUpdated bool       `json:"contract_updated"`
	Message         string     `json:"message"`
}

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name"`
}

// CreateHolidayRequest is the request to create a holiday.
type CreateHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// SweepRunDTO represents one overdue sweep run.
type SweepRunDTO struct {
	ID           string `json:"id"`
	RunDate      string `json:"run_date"`
	Checked      int    `json:"checked"`
	Transitioned int    `json:"transitioned"`
	Failed       int    `json:"failed"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toContractDTO(c billing.Contract) ContractDTO {
	dto := ContractDTO{
		ID:               c.ID,
		ClientID:         c.ClientID,
		Value:            c.Value.String(),
		DownPayment:      c.DownPayment.String(),
		NumberOfPayments: c.NumberOfPayments,
		PositiveBalance:  c.PositiveBalance.String(),
		NegativeBalance:  c.NegativeBalance.String(),
		Status:           string(c.Status),
	}
	if !c.StartDate.IsZero() {
		dto.StartDate = c.StartDate.Format("2006-01-02")
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:            p.ID,
		ContractID:    p.ContractID,
		Amount:        p.Amount.String(),
		DueDate:       p.DueDate.Format("2006-01-02"),
		Status:        string(p.Status),
		PaymentType:   string(p.PaymentType),
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
	}
	if p.IsPaid() {
		dto.PaidAmount = p.PaidAmount.String()
	}
	if !p.PaidDate.IsZero() {
		dto.PaidDate = p.PaidDate.Format("2006-01-02")
	}
	return dto
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toSweepRunDTO(run sqlite.SweepRun) SweepRunDTO {
	dto := SweepRunDTO{
		ID:           run.ID,
		RunDate:      run.RunDate.Format("2006-01-02"),
		Checked:      run.Checked,
		Transitioned: run.Transitioned,
		Failed:       run.Failed,
		Status:       run.Status,
		Error:        run.Error,
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
