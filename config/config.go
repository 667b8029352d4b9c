// Package config defines the core's configuration knobs (spec 6),
// JSON-backed with Default/Load/Save/Validate/Clone exactly as the
// teacher's timing/latency package does for its timing tables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// PredictionScheme selects the dynamic branch predictor.
type PredictionScheme string

const (
	PredictionStatic  PredictionScheme = "static"
	PredictionBimodal PredictionScheme = "bimodal"
	PredictionAgree   PredictionScheme = "agree"
)

// PrefetchMode selects the software-prefetch policy.
type PrefetchMode string

const (
	PrefetchOff        PrefetchMode = "off"
	PrefetchOn         PrefetchMode = "on"
	PrefetchJumpOverL1 PrefetchMode = "jump-over-l1"
)

// SpeculativeLoadMode selects the ambiguous-store policy (spec 4.3).
type SpeculativeLoadMode string

const (
	SpecLoadStall  SpeculativeLoadMode = "stall"
	SpecLoadLimbo  SpeculativeLoadMode = "limbo"
	SpecLoadExcept SpeculativeLoadMode = "except"
)

// ConsistencyModel selects RC, SC, or PC (spec 4.3).
type ConsistencyModel string

const (
	ModelRC ConsistencyModel = "rc"
	ModelSC ConsistencyModel = "sc"
	ModelPC ConsistencyModel = "pc"
)

// Config is every knob spec 6 enumerates, flattened into one JSON-backed
// struct per the teacher's TimingConfig shape.
type Config struct {
	DecodeRate       int `json:"decode_rate"`
	GraduateRate     int `json:"graduate_rate"` // 0 == unbounded, -1 == equal to DecodeRate
	ExceptFlushRate  int `json:"except_flush_rate"`

	ActiveListSize  int `json:"active_list_size"`
	MaxSpeculations int `json:"max_speculations"`

	IssueQueueSize  int  `json:"issue_queue_size"`
	MemQueueSize    int  `json:"mem_queue_size"`
	StallOnQueueFull bool `json:"stall_on_queue_full"`

	ALUUnits  int `json:"alu_units"`
	FPUUnits  int `json:"fpu_units"`
	AddrUnits int `json:"addr_units"`
	MemUnits  int `json:"mem_units"`

	StaticScheduling bool `json:"static_scheduling"`

	ALULatency  int `json:"alu_latency"`
	ALURepeat   int `json:"alu_repeat"`
	FPULatency  int `json:"fpu_latency"`
	FPURepeat   int `json:"fpu_repeat"`
	AddrLatency int `json:"addr_latency"`
	AddrRepeat  int `json:"addr_repeat"`
	MemLatency  int `json:"mem_latency"`
	MemRepeat   int `json:"mem_repeat"`
	FastUnits bool `json:"fast_units"`

	Prediction     PredictionScheme `json:"prediction"`
	PredictorSize  int              `json:"predictor_table_size"`
	RASDepth       int              `json:"ras_depth"`

	Prefetch              PrefetchMode `json:"prefetch"`
	PrefetchWritesToL2    bool         `json:"prefetch_writes_to_l2"`
	DropAllSoftwarePrefs  bool         `json:"drop_all_sw_prefetches"`

	SpeculativeLoad           SpeculativeLoadMode `json:"speculative_load_mode"`
	SpeculativeLoadsPastMembars bool              `json:"speculative_loads_past_membars"`

	Consistency       ConsistencyModel `json:"consistency"`
	NonBlockingWrites bool             `json:"non_blocking_writes"`

	RegisterWindows int `json:"register_windows"`

	RateMultiplierL1      int `json:"rate_multiplier_l1"`
	RateMultiplierL2      int `json:"rate_multiplier_l2"`
	RateMultiplierNetwork int `json:"rate_multiplier_network"`

	MaxStackBytes int64 `json:"max_stack_bytes"`

	DebugAfterCycle      int64 `json:"debug_after_cycle"`
	PartialStatsInterval int64 `json:"partial_stats_interval"`
}

// Default returns the spec's suggested baseline: 4-wide decode/graduate,
// RC consistency, bimodal prediction, SPEC_EXCEPT speculative loads,
// 32-entry active list, 8 shadow-mapper slots, 8 register windows.
func Default() *Config {
	return &Config{
		DecodeRate: 4, GraduateRate: -1, ExceptFlushRate: 2,
		ActiveListSize: 32, MaxSpeculations: 8,
		IssueQueueSize: 16, MemQueueSize: 16, StallOnQueueFull: true,
		ALUUnits: 2, FPUUnits: 2, AddrUnits: 2, MemUnits: 2,
		StaticScheduling: false,
		ALULatency: 1, ALURepeat: 1,
		FPULatency: 4, FPURepeat: 2,
		AddrLatency: 1, AddrRepeat: 1,
		MemLatency: 2, MemRepeat: 1,
		FastUnits: false,
		Prediction: PredictionBimodal, PredictorSize: 4096, RASDepth: 8,
		Prefetch: PrefetchOn, PrefetchWritesToL2: false, DropAllSoftwarePrefs: false,
		SpeculativeLoad: SpecLoadExcept, SpeculativeLoadsPastMembars: true,
		Consistency: ModelRC, NonBlockingWrites: true,
		RegisterWindows: 8,
		RateMultiplierL1: 1, RateMultiplierL2: 1, RateMultiplierNetwork: 1,
		MaxStackBytes: 1 << 20,
		DebugAfterCycle: -1, PartialStatsInterval: 0,
	}
}

// Load reads a Config from a JSON file, starting from Default so fields
// absent from the file keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes c to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// EffectiveGraduateRate resolves the -1/0 sentinel conventions.
func (c *Config) EffectiveGraduateRate() int {
	switch {
	case c.GraduateRate < 0:
		return c.DecodeRate
	case c.GraduateRate == 0:
		return c.ActiveListSize
	default:
		return c.GraduateRate
	}
}

// Validate checks invariants the rest of the module assumes hold.
func (c *Config) Validate() error {
	if c.DecodeRate <= 0 {
		return fmt.Errorf("decode_rate must be > 0")
	}
	if c.ActiveListSize <= 0 {
		return fmt.Errorf("active_list_size must be > 0")
	}
	if c.MaxSpeculations <= 0 {
		return fmt.Errorf("max_speculations must be > 0")
	}
	if c.ALUUnits <= 0 || c.FPUUnits <= 0 || c.AddrUnits <= 0 || c.MemUnits <= 0 {
		return fmt.Errorf("every functional unit count must be > 0")
	}
	if c.RegisterWindows < 4 || c.RegisterWindows > 32 || c.RegisterWindows&(c.RegisterWindows-1) != 0 {
		return fmt.Errorf("register_windows must be a power of two between 4 and 32")
	}
	switch c.Prediction {
	case PredictionStatic, PredictionBimodal, PredictionAgree:
	default:
		return fmt.Errorf("unrecognized prediction scheme %q", c.Prediction)
	}
	switch c.SpeculativeLoad {
	case SpecLoadStall, SpecLoadLimbo, SpecLoadExcept:
	default:
		return fmt.Errorf("unrecognized speculative_load_mode %q", c.SpeculativeLoad)
	}
	switch c.Consistency {
	case ModelRC, ModelSC, ModelPC:
	default:
		return fmt.Errorf("unrecognized consistency model %q", c.Consistency)
	}
	if c.MaxStackBytes <= 0 {
		return fmt.Errorf("max_stack_bytes must be > 0")
	}
	return nil
}

// Clone returns a deep copy (Config has no reference-typed fields, so a
// value copy suffices, matching the teacher's Clone despite the simpler
// implementation).
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
