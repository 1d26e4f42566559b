// Package config resolves rcawatch's configuration from defaults, an
// optional config file, environment variables (RCAWATCH_*), and CLI flags,
// in that order of increasing precedence, into an immutable Snapshot.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Snapshot is the fully-resolved, immutable configuration for one process
// lifetime (design note §9 "Global state": a single immutable config
// snapshot created at startup).
type Snapshot struct {
	HostWindowSeconds      int
	PIDWindowSeconds       int
	BaselineSeconds        int
	ZThreshold             float64
	CPUFloor               float64
	RAMFloor               float64
	PersistenceSamples     int
	CooldownSamples        int
	CoolingSeconds         int
	MinIncidentGapSeconds  int
	IncidentRetention      int
	LLMTimeoutSeconds      int
	LLMRetries             int
	AttributionWindowSeconds int

	LogLevel    string
	LogEncoding string

	TracerCommand []string
	ListenAddr    string
	LLMEndpoint   string
}

// defaults mirrors the option table in spec.md §6.
func defaults(v *viper.Viper) {
	v.SetDefault("host_window_seconds", 300)
	v.SetDefault("pid_window_seconds", 120)
	v.SetDefault("baseline_seconds", 120)
	v.SetDefault("z_threshold", 3.0)
	v.SetDefault("cpu_floor", 70.0)
	v.SetDefault("ram_floor", 80.0)
	v.SetDefault("persistence_samples", 3)
	v.SetDefault("cooldown_samples", 5)
	v.SetDefault("cooling_seconds", 30)
	v.SetDefault("min_incident_gap_seconds", 60)
	v.SetDefault("incident_retention", 200)
	v.SetDefault("llm_timeout_seconds", 20)
	v.SetDefault("llm_retries", 2)
	v.SetDefault("attribution_window_seconds", 60)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "console")

	v.SetDefault("tracer_command", []string{"etw-tracer"})
	v.SetDefault("listen_addr", ":8732")
	v.SetDefault("llm_endpoint", "")
}

// Load builds a Snapshot from defaults, an optional config file at path
// (skipped if empty), RCAWATCH_-prefixed environment variables, and any
// flags in flags whose name matches a config key (dashes translated to
// underscores — "listen-addr" binds to "listen_addr"). Precedence, highest
// first: flags, environment, config file, defaults. flags may be nil, in
// which case only env/file/defaults apply.
func Load(path string, flags *pflag.FlagSet) (*Snapshot, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("rcawatch")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			_ = v.BindPFlag(key, f)
		})
	}

	snap := &Snapshot{
		HostWindowSeconds:        v.GetInt("host_window_seconds"),
		PIDWindowSeconds:         v.GetInt("pid_window_seconds"),
		BaselineSeconds:          v.GetInt("baseline_seconds"),
		ZThreshold:               v.GetFloat64("z_threshold"),
		CPUFloor:                 v.GetFloat64("cpu_floor"),
		RAMFloor:                 v.GetFloat64("ram_floor"),
		PersistenceSamples:       v.GetInt("persistence_samples"),
		CooldownSamples:          v.GetInt("cooldown_samples"),
		CoolingSeconds:           v.GetInt("cooling_seconds"),
		MinIncidentGapSeconds:    v.GetInt("min_incident_gap_seconds"),
		IncidentRetention:        v.GetInt("incident_retention"),
		LLMTimeoutSeconds:        v.GetInt("llm_timeout_seconds"),
		LLMRetries:               v.GetInt("llm_retries"),
		AttributionWindowSeconds: v.GetInt("attribution_window_seconds"),
		LogLevel:                 v.GetString("log_level"),
		LogEncoding:              v.GetString("log_encoding"),
		TracerCommand:            v.GetStringSlice("tracer_command"),
		ListenAddr:               v.GetString("listen_addr"),
		LLMEndpoint:              v.GetString("llm_endpoint"),
	}

	if err := snap.validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Snapshot) validate() error {
	switch {
	case s.HostWindowSeconds <= 0:
		return fmt.Errorf("host_window_seconds must be positive")
	case s.PIDWindowSeconds <= 0:
		return fmt.Errorf("pid_window_seconds must be positive")
	case s.BaselineSeconds < 30:
		return fmt.Errorf("baseline_seconds must be at least 30 (cold-start floor)")
	case s.ZThreshold <= 0:
		return fmt.Errorf("z_threshold must be positive")
	case s.CPUFloor < 0 || s.CPUFloor > 100:
		return fmt.Errorf("cpu_floor must be in [0,100]")
	case s.RAMFloor < 0 || s.RAMFloor > 100:
		return fmt.Errorf("ram_floor must be in [0,100]")
	case s.PersistenceSamples <= 0:
		return fmt.Errorf("persistence_samples must be positive")
	case s.CooldownSamples <= 0:
		return fmt.Errorf("cooldown_samples must be positive")
	case s.CoolingSeconds <= 0:
		return fmt.Errorf("cooling_seconds must be positive")
	case s.IncidentRetention <= 0:
		return fmt.Errorf("incident_retention must be positive")
	case s.LLMTimeoutSeconds <= 0:
		return fmt.Errorf("llm_timeout_seconds must be positive")
	case s.LLMRetries < 0:
		return fmt.Errorf("llm_retries must be non-negative")
	}
	return nil
}

// BaselineDuration is BaselineSeconds as a time.Duration.
func (s *Snapshot) BaselineDuration() time.Duration {
	return time.Duration(s.BaselineSeconds) * time.Second
}

// AttributionWindow is AttributionWindowSeconds as a time.Duration.
func (s *Snapshot) AttributionWindow() time.Duration {
	return time.Duration(s.AttributionWindowSeconds) * time.Second
}

// CoolingDuration is CoolingSeconds as a time.Duration.
func (s *Snapshot) CoolingDuration() time.Duration {
	return time.Duration(s.CoolingSeconds) * time.Second
}

// MinIncidentGap is MinIncidentGapSeconds as a time.Duration.
func (s *Snapshot) MinIncidentGap() time.Duration {
	return time.Duration(s.MinIncidentGapSeconds) * time.Second
}

// LLMTimeout is LLMTimeoutSeconds as a time.Duration.
func (s *Snapshot) LLMTimeout() time.Duration {
	return time.Duration(s.LLMTimeoutSeconds) * time.Second
}
