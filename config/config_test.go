package config

import (
	"math/big"
	"testing"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Service.Name != "qd" {
		t.Fatalf("expected default service name, got %q", c.Service.Name)
	}
	if c.Solvency.InitialTargetBps != 11000 {
		t.Fatalf("expected default solvency target 11000bps, got %d", c.Solvency.InitialTargetBps)
	}
}

func TestOracleConfigPriceFixed(t *testing.T) {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	o := OracleConfig{PriceUSD: "5.5"}
	v, err := o.PriceFixed(one)
	if err != nil {
		t.Fatalf("PriceFixed: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(55), new(big.Int).Div(one, big.NewInt(10)))
	if v.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, v)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.toml"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
