package interfaces

import (
	"context"

	"coop-ledger/internal/pkg/store/models"
)

// LedgerEventPublisher announces applied payments. Failures are logged by
// the implementation and never returned.
type LedgerEventPublisher interface {
	PaymentApplied(ctx context.Context, tx models.Transaction)
}
