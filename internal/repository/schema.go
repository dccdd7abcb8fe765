package repository

import "fmt"

// SchemaStatements returns the idempotent DDL for all tables. Candles
// deduplicate on (symbol, tf, bucket); signals deduplicate on id with
// the freshest updated_at winning.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles (
            bucket DateTime,
            symbol LowCardinality(String),
            tf     LowCardinality(String),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            vol    Float64
        ) ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMM(bucket)
        ORDER BY (symbol, tf, bucket)`, database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signals (
            id              String,
            ts              DateTime,
            symbol          LowCardinality(String),
            direction       LowCardinality(String),
            signal_type     LowCardinality(String),
            entry           Float64,
            stop_loss       Float64,
            take_profit     Float64,
            take_profit2    Float64,
            size            Float64,
            risk_pct        Float64,
            risk_reward     Float64,
            confidence      Float64,
            consensus_score Float64,
            agreement       Float64,
            status          LowCardinality(String),
            expires_at      DateTime,
            reasons         Array(String),
            updated_at      DateTime
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY id`, database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signal_outcomes (
            signal_id   String,
            symbol      LowCardinality(String),
            direction   LowCardinality(String),
            entry       Float64,
            exit        Float64,
            pnl         Float64,
            pnl_pct     Float64,
            result      LowCardinality(String),
            exit_reason LowCardinality(String),
            opened_at   DateTime,
            closed_at   DateTime
        ) ENGINE = MergeTree
        ORDER BY (symbol, closed_at)`, database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.model_performance (
            ts          DateTime,
            model       LowCardinality(String),
            accuracy    Float64,
            predictions UInt32,
            agreement   Float64
        ) ENGINE = MergeTree
        ORDER BY (model, ts)`, database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.agent_evolution (
            ts        DateTime,
            symbol    LowCardinality(String),
            event     LowCardinality(String),
            detail    String,
            win_rate  Float64,
            threshold Float64
        ) ENGINE = MergeTree
        ORDER BY ts`, database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trading_mistakes (
            ts                DateTime,
            symbol            LowCardinality(String),
            type              LowCardinality(String),
            severity          Float64,
            description       String,
            corrective_action String
        ) ENGINE = MergeTree
        ORDER BY (symbol, ts)`, database),
	}
}
