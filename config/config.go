package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quantumflow/engine/pkg/bus"
	"github.com/quantumflow/engine/pkg/cache"
	postgres_wrapper "github.com/quantumflow/engine/pkg/infra/postgres"
)

// RiskLimits is the YAML-facing shape of pkg/risk.Limits; the decimal
// fields are parsed as strings here and converted by the caller with
// decimal.NewFromString, since decimal.Decimal has no yaml.v3 unmarshaler
// of its own.
type RiskLimits struct {
	MaxOrderSize    string `yaml:"max_order_size"`
	MaxPositionSize string `yaml:"max_position_size"`
	MaxDailyLoss    string `yaml:"max_daily_loss"`
	MaxLeverage     string `yaml:"max_leverage"`
}

// FixGatewayConfig points at the session config a quickfix.Acceptor would
// be built from; pkg/feed.FixGateway itself only does message conversion,
// so this is all a deployment needs on top of it to run a session.
type FixGatewayConfig struct {
	SessionConfigPath string `yaml:"session_config_path"`
}

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	RiskLimits  RiskLimits                       `yaml:"risk_limits"`
	Redis       cache.Config                     `yaml:"redis"`
	Kafka       bus.Config                       `yaml:"kafka"`
	AuditDB     *postgres_wrapper.PostgresConfig `yaml:"audit_db"`
	FixGateway  FixGatewayConfig                 `yaml:"fix_gateway"`
}

// Load reads an AppConfig from a YAML file, expanding $VAR references
// against the process environment before unmarshalling.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.Load",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
