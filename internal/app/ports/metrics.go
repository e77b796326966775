package ports

import "tradecore/internal/domain/trade"

// TradeMetrics counts trade outcomes. One recorder is shared by every trade
// actor, so implementations must be safe for concurrent use.
type TradeMetrics interface {
	RecordOutcome(status trade.Status)
	RecordCommitConflict()
	RecordRuleViolation()
}
