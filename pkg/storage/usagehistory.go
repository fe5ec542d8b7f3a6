package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// UsageHistoryStore retains raw usage records and serves windowed reads
// back to the analysis pipeline. ClickHouse fits the write-heavy,
// columnar time-series shape of this data; the relational store keeps
// only derived records.
type UsageHistoryStore interface {
	AppendRecords(ctx context.Context, records []models.UsageRecord) error
	GetRecords(ctx context.Context, provider, resourceID string, from, to time.Time) ([]models.UsageRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// ClickHouseConfig holds ClickHouse connection configuration.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseHistory implements UsageHistoryStore on ClickHouse.
type ClickHouseHistory struct {
	conn clickhouse.Conn
}

// NewClickHouseHistory connects and ensures the usage table exists.
func NewClickHouseHistory(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseHistory, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	store := &ClickHouseHistory{conn: conn}
	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to create usage table: %w", err)
	}

	return store, nil
}

func (s *ClickHouseHistory) migrate(ctx context.Context) error {
	return s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS usage_records (
			resource_id     String,
			provider        LowCardinality(String),
			service         LowCardinality(String),
			ts              DateTime64(3),
			cost            Float64,
			utilization     Float64,
			has_utilization UInt8
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (provider, resource_id, ts)
	`)
}

// AppendRecords batch-inserts usage records.
func (s *ClickHouseHistory) AppendRecords(ctx context.Context, records []models.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO usage_records (
			resource_id, provider, service, ts, cost, utilization, has_utilization
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rec := range records {
		if err := batch.Append(
			rec.ResourceID, rec.Provider, rec.Service, rec.Timestamp,
			rec.Cost, rec.Utilization, boolToUInt8(rec.HasUtilization),
		); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
	}

	return batch.Send()
}

// GetRecords reads one resource's records over a window, oldest first.
func (s *ClickHouseHistory) GetRecords(ctx context.Context, provider, resourceID string, from, to time.Time) ([]models.UsageRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT resource_id, provider, service, ts, cost, utilization, has_utilization
		FROM usage_records
		WHERE provider = ? AND resource_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`, provider, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var hasUtilization uint8

		if err := rows.Scan(
			&rec.ResourceID, &rec.Provider, &rec.Service, &rec.Timestamp,
			&rec.Cost, &rec.Utilization, &hasUtilization,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}

		rec.HasUtilization = hasUtilization == 1
		records = append(records, rec)
	}

	return records, nil
}

// Ping checks database connectivity.
func (s *ClickHouseHistory) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the connection.
func (s *ClickHouseHistory) Close() error {
	return s.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
