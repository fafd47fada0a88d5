package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig maps probe.toml keys to probe settings.
type fileConfig struct {
	Transport       string `toml:"transport"`
	URL             string `toml:"url"`
	ProtocolVersion string `toml:"protocol_version"`
	ProbeInterval   string `toml:"probe_interval"`
	ReportInterval  string `toml:"report_interval"`
	HealthyRate     float64 `toml:"healthy_success_rate"`
	SlowThreshold   string `toml:"slow_threshold"`
}

type probeConfig struct {
	Transport       string
	URL             string
	ProtocolVersion string
	ProbeInterval   time.Duration
	ReportInterval  time.Duration
	HealthyRate     float64
	SlowThreshold   time.Duration
}

func defaultProbeConfig() probeConfig {
	return probeConfig{
		Transport:      "sse",
		ProbeInterval:  5 * time.Second,
		ReportInterval: 30 * time.Second,
		HealthyRate:    90.0,
		SlowThreshold:  time.Second,
	}
}

func loadProbeConfig(path string) (probeConfig, error) {
	cfg := defaultProbeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return probeConfig{}, fmt.Errorf("load probe config: %w", err)
	}

	if meta.IsDefined("transport") {
		cfg.Transport = raw.Transport
	}
	if meta.IsDefined("url") {
		cfg.URL = raw.URL
	}
	if meta.IsDefined("protocol_version") {
		cfg.ProtocolVersion = raw.ProtocolVersion
	}
	if meta.IsDefined("probe_interval") {
		cfg.ProbeInterval, err = time.ParseDuration(raw.ProbeInterval)
		if err != nil {
			return probeConfig{}, fmt.Errorf("parse probe_interval: %w", err)
		}
	}
	if meta.IsDefined("report_interval") {
		cfg.ReportInterval, err = time.ParseDuration(raw.ReportInterval)
		if err != nil {
			return probeConfig{}, fmt.Errorf("parse report_interval: %w", err)
		}
	}
	if meta.IsDefined("healthy_success_rate") {
		cfg.HealthyRate = raw.HealthyRate
	}
	if meta.IsDefined("slow_threshold") {
		cfg.SlowThreshold, err = time.ParseDuration(raw.SlowThreshold)
		if err != nil {
			return probeConfig{}, fmt.Errorf("parse slow_threshold: %w", err)
		}
	}

	if cfg.URL == "" {
		return probeConfig{}, fmt.Errorf("url is required")
	}
	switch cfg.Transport {
	case "sse", "websocket":
	default:
		return probeConfig{}, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	return cfg, nil
}
