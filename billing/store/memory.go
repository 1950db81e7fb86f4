// Package store provides an in-memory billing.Store implementation
// for tests and demos.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/contract-engine/billing"
	"github.com/warp/contract-engine/money"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	contracts map[string]billing.Contract
	payments  map[string]billing.Payment
}

func NewMemory() *Memory {
	return &Memory{
		contracts: make(map[string]billing.Contract),
		payments:  make(map[string]billing.Payment),
	}
}

// -----------------------------------------------------------------------------
// Contracts
// -----------------------------------------------------------------------------

func (m *Memory) GetContract(_ context.Context, id string) (*billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getContractLocked(id), nil
}

func (m *Memory) getContractLocked(id string) *billing.Contract {
	c, ok := m.contracts[id]
	if !ok {
		return nil
	}
	return &c
}

func (m *Memory) SaveContract(_ context.Context, c billing.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c
	return nil
}

func (m *Memory) ListContracts(_ context.Context) ([]billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]billing.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) DeleteContract(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.payments {
		if p.ContractID == id {
			return billing.ErrContractHasPayments
		}
	}
	delete(m.contracts, id)
	return nil
}

func (m *Memory) UpdateContractBalances(_ context.Context, id string, positive, negative money.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateContractBalancesLocked(id, positive, negative)
}

func (m *Memory) updateContractBalancesLocked(id string, positive, negative money.Amount) error {
	c, ok := m.contracts[id]
	if !ok {
		return billing.ErrContractNotFound
	}
	c.PositiveBalance = positive
	c.NegativeBalance = negative
	m.contracts[id] = c
	return nil
}

func (m *Memory) UpdateContractStatus(_ context.Context, id string, status billing.ContractStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateContractStatusLocked(id, status)
}

func (m *Memory) updateContractStatusLocked(id string, status billing.ContractStatus) error {
	c, ok := m.contracts[id]
	if !ok {
		return billing.ErrContractNotFound
	}
	c.Status = status
	m.contracts[id] = c
	return nil
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

func (m *Memory) GetPayment(_ context.Context, id string) (*billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPaymentLocked(id), nil
}

func (m *Memory) getPaymentLocked(id string) *billing.Payment {
	p, ok := m.payments[id]
	if !ok {
		return nil
	}
	return &p
}

func (m *Memory) ListPaymentsByContract(_ context.Context, contractID string) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPaymentsLocked(contractID), nil
}

func (m *Memory) listPaymentsLocked(contractID string) []billing.Payment {
	var result []billing.Payment
	for _, p := range m.payments {
		if p.ContractID == contractID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].DueDate.Before(result[j].DueDate)
	})
	return result
}

func (m *Memory) ListDuePending(_ context.Context, cutoff time.Time) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.Payment
	for _, p := range m.payments {
		if p.Status == billing.PaymentPending && p.DueDate.Before(cutoff) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) InsertPayments(_ context.Context, payments []billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPaymentsLocked(payments)
}

func (m *Memory) insertPaymentsLocked(payments []billing.Payment) error {
	for _, p := range payments {
		m.payments[p.ID] = p
	}
	return nil
}

func (m *Memory) UpdatePayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePaymentLocked(p)
}

func (m *Memory) updatePaymentLocked(p billing.Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return billing.ErrPaymentNotFound
	}
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) DeletePaymentsByContract(_ context.Context, contractID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.payments {
		if p.ContractID == contractID {
			delete(m.payments, id)
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is a
// snapshot + rollback on error, serialized under the write lock - which also
// provides the isolation the billing engine requires for balance updates.
func (tm *TxMemory) WithTx(_ context.Context, fn func(billing.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	contracts := make(map[string]billing.Contract, len(tm.contracts))
	for k, v := range tm.contracts {
		contracts[k] = v
	}
	payments := make(map[string]billing.Payment, len(tm.payments))
	for k, v := range tm.payments {
		payments[k] = v
	}
	return memorySnapshot{contracts: contracts, payments: payments}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.contracts = s.contracts
	tm.payments = s.payments
}

type memorySnapshot struct {
	contracts map[string]billing.Contract
	payments  map[string]billing.Payment
}

// txMemoryView routes calls to the locked helpers; the parent's lock is held
// for the whole transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetContract(_ context.Context, id string) (*billing.Contract, error) {
	return tv.parent.getContractLocked(id), nil
}

func (tv *txMemoryView) SaveContract(_ context.Context, c billing.Contract) error {
	tv.parent.contracts[c.ID] = c
	return nil
}

func (tv *txMemoryView) ListContracts(_ context.Context) ([]billing.Contract, error) {
	result := make([]billing.Contract, 0, len(tv.parent.contracts))
	for _, c := range tv.parent.contracts {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) DeleteContract(_ context.Context, id string) error {
	for _, p := range tv.parent.payments {
		if p.ContractID == id {
			return billing.ErrContractHasPayments
		}
	}
	delete(tv.parent.contracts, id)
	return nil
}

func (tv *txMemoryView) UpdateContractBalances(_ context.Context, id string, positive, negative money.Amount) error {
	return tv.parent.updateContractBalancesLocked(id, positive, negative)
}

func (tv *txMemoryView) UpdateContractStatus(_ context.Context, id string, status billing.ContractStatus) error {
	return tv.parent.updateContractStatusLocked(id, status)
}

func (tv *txMemoryView) GetPayment(_ context.Context, id string) (*billing.Payment, error) {
	return tv.parent.getPaymentLocked(id), nil
}

func (tv *txMemoryView) ListPaymentsByContract(_ context.Context, contractID string) ([]billing.Payment, error) {
	return tv.parent.listPaymentsLocked(contractID), nil
}

func (tv *txMemoryView) ListDuePending(_ context.Context, cutoff time.Time) ([]billing.Payment, error) {
	var result []billing.Payment
	for _, p := range tv.parent.payments {
		if p.Status == billing.PaymentPending && p.DueDate.Before(cutoff) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) InsertPayments(_ context.Context, payments []billing.Payment) error {
	return tv.parent.insertPaymentsLocked(payments)
}

func (tv *txMemoryView) UpdatePayment(_ context.Context, p billing.Payment) error {
	return tv.parent.updatePaymentLocked(p)
}

func (tv *txMemoryView) DeletePaymentsByContract(_ context.Context, contractID string) error {
	for id, p := range tv.parent.payments {
		if p.ContractID == contractID {
			delete(tv.parent.payments, id)
		}
	}
	return nil
}
