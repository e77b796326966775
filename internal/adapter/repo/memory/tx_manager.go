package memory

import "context"

// TxManager satisfies ports.TxManager without transactional semantics; the
// in-memory adapters apply writes atomically per aggregate, which is all the
// actor-per-aggregate model relies on.
type TxManager struct{}

func NewTxManager() TxManager { return TxManager{} }

func (TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
