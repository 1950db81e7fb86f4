/*
store.go - Persistence interface for the billing engine

PURPOSE:
  The engine computes new contract/payment state in memory and hands it to a
  Store to persist. Implementations: store/sqlite (production) and
  billing/store (in-memory, tests).

CONCURRENCY CONTRACT:
  Payment application is a read-compute-write on the contract's balance row.
  Two concurrent applications against the same contract - the realistic case
  is two installments of one contract paid at once - would race without a
  guard. The applicator therefore runs every application inside WithTx, and
  implementations MUST make WithTx atomic and isolated: a database
  transaction, or an equivalent lock for in-memory stores. The engine itself
  takes no locks.

LOOKUP CONVENTION:
  Get* returns (nil, nil) when the record does not exist; errors are reserved
  for storage failures. The applicator converts nil into the typed not-found
  errors.

SEE ALSO:
  - store/sqlite/sqlite.go: SQLite implementation
  - billing/store/memory.go: In-memory implementation
*/
package billing

import (
	"context"
	"time"

	"github.com/warp/contract-engine/money"
)

// Store is the persistence collaborator for contracts and payments.
type Store interface {
	// Contracts
	GetContract(ctx context.Context, id string) (*Contract, error)
	SaveContract(ctx context.Context, c Contract) error
	ListContracts(ctx context.Context) ([]Contract, error)
	// DeleteContract fails with ErrContractHasPayments while installments
	// exist; callers must cascade-delete payments first.
	DeleteContract(ctx context.Context, id string) error
	UpdateContractBalances(ctx context.Context, id string, positive, negative money.Amount) error
	UpdateContractStatus(ctx context.Context, id string, status ContractStatus) error

	// Payments
	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListPaymentsByContract(ctx context.Context, contractID string) ([]Payment, error)
	// ListDuePending returns pending payments with a due date before the cutoff.
	ListDuePending(ctx context.Context, cutoff time.Time) ([]Payment, error)
	InsertPayments(ctx context.Context, payments []Payment) error
	UpdatePayment(ctx context.Context, p Payment) error
	DeletePaymentsByContract(ctx context.Context, contractID string) error
}

// TxStore is a Store that can run a function atomically.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view of the store. All
	// writes inside fn commit together or not at all, and concurrent WithTx
	// calls are serialized against each other.
	WithTx(ctx context.Context, fn func(Store) error) error
}
