package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgch "TradePulse/pkg/clickhouse"
)

// CHSignalStore persists signals and outcomes in ClickHouse.
type CHSignalStore struct {
	db       *sql.DB
	database string
}

func NewCHSignalStore(ch *pkgch.Client, database string) *CHSignalStore {
	return &CHSignalStore{db: ch.DB(), database: database}
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)

func (s *CHSignalStore) SaveSignal(ctx context.Context, sig *models.TradingSignal) error {
	q := fmt.Sprintf(`INSERT INTO %s.signals
        (id, ts, symbol, direction, signal_type, entry, stop_loss, take_profit, take_profit2,
         size, risk_pct, risk_reward, confidence, consensus_score, agreement, status,
         expires_at, reasons, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		sig.ID, sig.Timestamp, sig.Symbol, string(sig.Direction), sig.SignalType,
		sig.Entry, sig.StopLoss, sig.TakeProfit, sig.TakeProfit2,
		sig.Size, sig.RiskPct, sig.RiskReward, sig.Confidence, sig.ConsensusScore,
		sig.Agreement, string(sig.Status), sig.ExpiresAt, sig.Reasons, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

// UpdateSignalStatus re-inserts the signal row with the new status; the
// ReplacingMergeTree keeps the freshest updated_at per id.
func (s *CHSignalStore) UpdateSignalStatus(ctx context.Context, id string, status models.SignalStatus) error {
	sel := fmt.Sprintf(`SELECT id, ts, symbol, direction, signal_type, entry, stop_loss,
        take_profit, take_profit2, size, risk_pct, risk_reward, confidence,
        consensus_score, agreement, status, expires_at, reasons
        FROM %s.signals FINAL WHERE id = ? LIMIT 1`, s.database)

	var sig models.TradingSignal
	var dir, st string
	err := s.db.QueryRowContext(ctx, sel, id).Scan(
		&sig.ID, &sig.Timestamp, &sig.Symbol, &dir, &sig.SignalType,
		&sig.Entry, &sig.StopLoss, &sig.TakeProfit, &sig.TakeProfit2,
		&sig.Size, &sig.RiskPct, &sig.RiskReward, &sig.Confidence,
		&sig.ConsensusScore, &sig.Agreement, &st, &sig.ExpiresAt, &sig.Reasons)
	if err != nil {
		return fmt.Errorf("update signal status %s: %w", id, err)
	}
	sig.Direction = models.Direction(dir)
	sig.Status = status
	return s.SaveSignal(ctx, &sig)
}

func (s *CHSignalStore) ListSignals(ctx context.Context, symbol string, status models.SignalStatus, limit int) ([]models.TradingSignal, error) {
	q := fmt.Sprintf(`SELECT id, ts, symbol, direction, signal_type, entry, stop_loss,
        take_profit, take_profit2, size, risk_pct, risk_reward, confidence,
        consensus_score, agreement, status, expires_at, reasons
        FROM %s.signals FINAL
        WHERE (? = '' OR symbol = ?) AND (? = '' OR status = ?)
        ORDER BY ts DESC LIMIT ?`, s.database)

	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, string(status), string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []models.TradingSignal
	for rows.Next() {
		var sig models.TradingSignal
		var dir, st string
		if err := rows.Scan(
			&sig.ID, &sig.Timestamp, &sig.Symbol, &dir, &sig.SignalType,
			&sig.Entry, &sig.StopLoss, &sig.TakeProfit, &sig.TakeProfit2,
			&sig.Size, &sig.RiskPct, &sig.RiskReward, &sig.Confidence,
			&sig.ConsensusScore, &sig.Agreement, &st, &sig.ExpiresAt, &sig.Reasons); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Direction = models.Direction(dir)
		sig.Status = models.SignalStatus(st)
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *CHSignalStore) SaveOutcome(ctx context.Context, o *models.TradeOutcome) error {
	q := fmt.Sprintf(`INSERT INTO %s.signal_outcomes
        (signal_id, symbol, direction, entry, exit, pnl, pnl_pct, result, exit_reason, opened_at, closed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		o.SignalID, o.Symbol, string(o.Direction), o.Entry, o.Exit,
		o.PnL, o.PnLPct, string(o.Result), o.ExitReason, o.OpenedAt, o.ClosedAt)
	if err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	return nil
}

func (s *CHSignalStore) ListOutcomes(ctx context.Context, symbol string, limit int) ([]models.TradeOutcome, error) {
	q := fmt.Sprintf(`SELECT signal_id, symbol, direction, entry, exit, pnl, pnl_pct,
        result, exit_reason, opened_at, closed_at
        FROM %s.signal_outcomes
        WHERE (? = '' OR symbol = ?)
        ORDER BY closed_at DESC LIMIT ?`, s.database)

	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.TradeOutcome
	for rows.Next() {
		var o models.TradeOutcome
		var dir, res string
		if err := rows.Scan(&o.SignalID, &o.Symbol, &dir, &o.Entry, &o.Exit,
			&o.PnL, &o.PnLPct, &res, &o.ExitReason, &o.OpenedAt, &o.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Direction = models.Direction(dir)
		o.Result = models.OutcomeResult(res)
		out = append(out, o)
	}
	return out, rows.Err()
}
