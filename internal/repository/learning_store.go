package repository

import (
	"context"
	"database/sql"
	"fmt"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgch "TradePulse/pkg/clickhouse"
)

// CHLearningStore persists mistakes, evolution events and model
// performance in ClickHouse.
type CHLearningStore struct {
	db       *sql.DB
	database string
}

func NewCHLearningStore(ch *pkgch.Client, database string) *CHLearningStore {
	return &CHLearningStore{db: ch.DB(), database: database}
}

var _ domrepo.LearningStore = (*CHLearningStore)(nil)

func (s *CHLearningStore) SaveMistake(ctx context.Context, m *models.TradingMistake) error {
	q := fmt.Sprintf(`INSERT INTO %s.trading_mistakes
        (ts, symbol, type, severity, description, corrective_action)
        VALUES (?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		m.Timestamp, m.Symbol, string(m.Type), m.Severity, m.Description, m.CorrectiveAction)
	if err != nil {
		return fmt.Errorf("save mistake: %w", err)
	}
	return nil
}

func (s *CHLearningStore) ListMistakes(ctx context.Context, symbol string, limit int) ([]models.TradingMistake, error) {
	q := fmt.Sprintf(`SELECT ts, symbol, type, severity, description, corrective_action
        FROM %s.trading_mistakes
        WHERE (? = '' OR symbol = ?)
        ORDER BY ts DESC LIMIT ?`, s.database)

	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	defer rows.Close()

	var out []models.TradingMistake
	for rows.Next() {
		var m models.TradingMistake
		var kind string
		if err := rows.Scan(&m.Timestamp, &m.Symbol, &kind, &m.Severity, &m.Description, &m.CorrectiveAction); err != nil {
			return nil, fmt.Errorf("scan mistake: %w", err)
		}
		m.Type = models.MistakeType(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *CHLearningStore) SaveEvolution(ctx context.Context, e *models.EvolutionEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s.agent_evolution
        (ts, symbol, event, detail, win_rate, threshold)
        VALUES (?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		e.Timestamp, e.Symbol, e.Event, e.Detail, e.WinRate, e.Threshold)
	if err != nil {
		return fmt.Errorf("save evolution: %w", err)
	}
	return nil
}

func (s *CHLearningStore) ListEvolution(ctx context.Context, limit int) ([]models.EvolutionEvent, error) {
	q := fmt.Sprintf(`SELECT ts, symbol, event, detail, win_rate, threshold
        FROM %s.agent_evolution
        ORDER BY ts DESC LIMIT ?`, s.database)

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list evolution: %w", err)
	}
	defer rows.Close()

	var out []models.EvolutionEvent
	for rows.Next() {
		var e models.EvolutionEvent
		if err := rows.Scan(&e.Timestamp, &e.Symbol, &e.Event, &e.Detail, &e.WinRate, &e.Threshold); err != nil {
			return nil, fmt.Errorf("scan evolution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *CHLearningStore) SaveModelPerformance(ctx context.Context, p *models.ModelPerformance) error {
	q := fmt.Sprintf(`INSERT INTO %s.model_performance
        (ts, model, accuracy, predictions, agreement)
        VALUES (?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		p.Timestamp, p.Model, p.Accuracy, uint32(p.Predictions), p.Agreement)
	if err != nil {
		return fmt.Errorf("save model performance: %w", err)
	}
	return nil
}

func (s *CHLearningStore) ListModelPerformance(ctx context.Context, model string, limit int) ([]models.ModelPerformance, error) {
	q := fmt.Sprintf(`SELECT ts, model, accuracy, predictions, agreement
        FROM %s.model_performance
        WHERE (? = '' OR model = ?)
        ORDER BY ts DESC LIMIT ?`, s.database)

	rows, err := s.db.QueryContext(ctx, q, model, model, limit)
	if err != nil {
		return nil, fmt.Errorf("list model performance: %w", err)
	}
	defer rows.Close()

	var out []models.ModelPerformance
	for rows.Next() {
		var p models.ModelPerformance
		var preds uint32
		if err := rows.Scan(&p.Timestamp, &p.Model, &p.Accuracy, &preds, &p.Agreement); err != nil {
			return nil, fmt.Errorf("scan model performance: %w", err)
		}
		p.Predictions = int(preds)
		out = append(out, p)
	}
	return out, rows.Err()
}
