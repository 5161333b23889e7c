package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AnuragDani/gateway-decider/internal/logger"
)

// ConfigSource serves named configuration values and merchant feature flags
// from the service_configuration and merchant_features tables. Any database
// failure reads as an absent value.
type ConfigSource struct {
	db  *DB
	log *logger.Logger
}

func NewConfigSource(db *DB, log *logger.Logger) *ConfigSource {
	if log == nil {
		log = logger.Discard()
	}
	return &ConfigSource{db: db, log: log}
}

func (s *ConfigSource) FindByName(ctx context.Context, name string) (string, bool) {
	var value sql.NullString
	err := s.db.Conn.QueryRowContext(ctx,
		`SELECT value FROM service_configuration WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.log.Warn("service_configuration_lookup_failed", "name", name, "error", err)
		return "", false
	}
	return value.String, value.Valid
}

// IsFeatureEnabled reports whether flag is enabled for the merchant or for
// every merchant through the "*" row
func (s *ConfigSource) IsFeatureEnabled(ctx context.Context, flag, merchantID string) bool {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM merchant_features
			WHERE flag = $1 AND merchant_id IN ($2, '*') AND enabled
		)`

	var enabled bool
	if err := s.db.Conn.QueryRowContext(ctx, query, flag, merchantID).Scan(&enabled); err != nil {
		s.log.Warn("feature_flag_lookup_failed", "flag", flag, "merchant_id", merchantID, "error", err)
		return false
	}
	return enabled
}
