// Package payments keeps a local trace of mobile-money orders.
package payments

import (
	"context"
	"sync"

	"lemonade/internal/models"
	"lemonade/internal/storage"

	"go.uber.org/zap"
)

// MaxTransactions is how many M-Pesa transactions the ledger retains.
const MaxTransactions = 20

const StatusPending = "pending"

type Ledger struct {
	mu      sync.Mutex
	storage storage.Store
	logger  *zap.Logger
	txs     []models.MpesaTransaction
}

func NewLedger(ctx context.Context, s storage.Store, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{storage: s, logger: logger}
	if _, err := storage.LoadJSON(ctx, s, storage.KeyMpesaTransactions, &l.txs); err != nil {
		l.txs = nil
		logger.Warn("⚠️ stored M-Pesa ledger unreadable, starting empty", zap.Error(err))
		return l, err
	}
	return l, nil
}

// Record appends tx, oldest entries falling off past MaxTransactions.
// An empty status is recorded as pending.
func (l *Ledger) Record(ctx context.Context, tx models.MpesaTransaction) error {
	if tx.Status == "" {
		tx.Status = StatusPending
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.txs = append(l.txs, tx)
	if n := len(l.txs); n > MaxTransactions {
		l.txs = append([]models.MpesaTransaction(nil), l.txs[n-MaxTransactions:]...)
	}
	l.logger.Info("📱 M-Pesa transaction recorded",
		zap.String("order", tx.OrderReference),
		zap.String("amount", tx.Amount.String()))
	return storage.SaveJSON(ctx, l.storage, storage.KeyMpesaTransactions, l.txs)
}

// List returns the transactions, oldest first.
func (l *Ledger) List() []models.MpesaTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.MpesaTransaction, len(l.txs))
	copy(out, l.txs)
	return out
}
