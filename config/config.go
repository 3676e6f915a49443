// Package config loads the qd engine's runtime configuration from a TOML
// file, grounded on native/lending/config.go's Config/EnsureDefaults
// pattern and loaded with github.com/BurntSushi/toml the way the
// teacher's own config package does.
package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
)

// Config captures everything the qd CLI and any long-running host
// process needs to boot an engine instance.
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Oracle   OracleConfig   `toml:"oracle"`
	Solvency SolvencyConfig `toml:"solvency"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// ServiceConfig names the running process for logs and metrics labels.
type ServiceConfig struct {
	Name string `toml:"name"`
}

// OracleConfig seeds a StaticOracle when no live price feed is wired up;
// PriceUSD and VolPct are plain decimal strings/floats, not fixed-point.
type OracleConfig struct {
	PriceUSD string  `toml:"price_usd"`
	VolPct   float64 `toml:"vol_pct"`
}

// PriceFixed parses PriceUSD into a mathx.ONE-scaled *big.Int.
func (o OracleConfig) PriceFixed(one *big.Int) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(o.PriceUSD)
	if !ok {
		return nil, fmt.Errorf("config: invalid oracle.price_usd %q", o.PriceUSD)
	}
	scaled := new(big.Int).Mul(r.Num(), one)
	return new(big.Int).Div(scaled, r.Denom()), nil
}

// SolvencyConfig holds an initial governance-voted solvency target. The
// qd CLI does not read it; its engine starts from qd.DefaultTarget.
type SolvencyConfig struct {
	InitialTargetBps uint64 `toml:"initial_target_bps"`
}

// LoggingConfig holds log level and format settings. The qd CLI does not
// apply them: logging.Setup always emits JSON at slog's default level.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds a Prometheus exporter listen address and switch.
// Nothing in this repository starts an exporter or reads these fields.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"`
	Enabled    bool   `toml:"enabled"`
}

// EnsureDefaults fills in zero-value fields so a minimal or empty config
// file still produces a bootable configuration.
func (c *Config) EnsureDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "qd"
	}
	if c.Oracle.PriceUSD == "" {
		c.Oracle.PriceUSD = "5"
	}
	if c.Oracle.VolPct == 0 {
		c.Oracle.VolPct = 0.8
	}
	if c.Solvency.InitialTargetBps == 0 {
		c.Solvency.InitialTargetBps = 11000 // 110%
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
}

// Load reads and decodes a TOML config file at path, applying defaults
// for anything the file leaves unset.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if _, err := toml.DecodeFile(path, &c); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	c.EnsureDefaults()
	return &c, nil
}
