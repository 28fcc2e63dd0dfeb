package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Counter program deployed on devnet.
const (
	DefaultCluster    = "devnet"
	DefaultCommitment = "confirmed"
	DefaultProgramID  = "3PmKxGK4Dq8rcsdbr4cCK2RA1ND8UZohPZQrt3ofuEQh"
)

type RPCConfig struct {
	Cluster    string        `yaml:"cluster" env:"SOLANA_CLUSTER"`
	URL        string        `yaml:"url" env:"RPC_URL"`
	Commitment string        `yaml:"commitment"`
	Timeout    time.Duration `yaml:"timeout"`
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
}

type WalletConfig struct {
	KeypairPath  string `yaml:"keypair_path" env:"KEYPAIR_PATH"`
	SecretKeyB58 string `yaml:"secret_key_b58" env:"SECRET_KEY_B58"`
	// AutoApprove skips the connection prompt.
	AutoApprove bool `yaml:"auto_approve"`
}

type ProgramConfig struct {
	ProgramID string `yaml:"program_id" env:"COUNTER_PROGRAM_ID"`
	// IDLPath replaces the embedded interface description when set.
	IDLPath string `yaml:"idl_path"`
}

type FeesConfig struct {
	PriorityMicrolamports uint64 `yaml:"priority_microlamports"`
	ComputeUnitLimit      uint32 `yaml:"compute_unit_limit"`
}

type SessionConfig struct {
	ActionTimeout  time.Duration `yaml:"action_timeout"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PollJitterPct  float64       `yaml:"poll_jitter_pct"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"` // debug|info|warn|error
	Format string `yaml:"format"`                // json|text
}

type Config struct {
	RPC        RPCConfig     `yaml:"rpc"`
	Wallet     WalletConfig  `yaml:"wallet"`
	Program    ProgramConfig `yaml:"program"`
	Fees       FeesConfig    `yaml:"fees"`
	Session    SessionConfig `yaml:"session"`
	Metrics    MetricsConfig `yaml:"metrics"`
	MaxRetries int           `yaml:"max_retries"`
	Logging    LoggingConfig `yaml:"logging"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.RPC.Cluster == "" {
		c.RPC.Cluster = DefaultCluster
	}
	if c.RPC.Commitment == "" {
		c.RPC.Commitment = DefaultCommitment
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = 10 * time.Second
	}
	if c.RPC.RPS > 0 && c.RPC.Burst == 0 {
		c.RPC.Burst = 1
	}
	if c.Program.ProgramID == "" {
		c.Program.ProgramID = DefaultProgramID
	}
	if c.Session.ActionTimeout == 0 {
		c.Session.ActionTimeout = 60 * time.Second
	}
	if c.Session.ConfirmTimeout == 0 {
		c.Session.ConfirmTimeout = 30 * time.Second
	}
	if c.Session.PollInterval == 0 {
		c.Session.PollInterval = time.Second
	}
	if c.Session.PollJitterPct == 0 {
		c.Session.PollJitterPct = 0.2
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment %q: want processed|confirmed|finalized", c.RPC.Commitment)
	}
	if c.RPC.RPS < 0 || c.RPC.Burst < 0 {
		return errors.New("rpc.rps and rpc.burst must not be negative")
	}
	if c.Session.PollJitterPct < 0 || c.Session.PollJitterPct >= 1 {
		return errors.New("session.poll_jitter_pct must be in [0, 1)")
	}
	return nil
}
