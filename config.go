package ledgerxgo

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Node     int64  `mapstructure:"node"`
	LogLevel string `mapstructure:"log_level"`
	Server   struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Database struct {
		ConnectionString string        `mapstructure:"conn_str"`
		StoreTimeout     time.Duration `mapstructure:"store_timeout"`
	} `mapstructure:"database"`
	Ledger        LedgerConfig `mapstructure:"ledger"`
	Notifications struct {
		Sink       string `mapstructure:"sink"`
		ReceiptDir string `mapstructure:"receipt_dir"`
		AMQPURL    string `mapstructure:"amqp_url"`
		Exchange   string `mapstructure:"exchange"`
		QueueSize  int    `mapstructure:"queue_size"`
	} `mapstructure:"notifications"`
	Audit struct {
		MissingRevision string `mapstructure:"missing_revision"`
		Schedule        string `mapstructure:"schedule"`
	} `mapstructure:"audit"`
	Limits struct {
		Concurrency    int64         `mapstructure:"concurrency"`
		AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	} `mapstructure:"limits"`
}

type LedgerConfig struct {
	OverdraftGuard bool          `mapstructure:"overdraft_guard"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	StoreTimeout   time.Duration `mapstructure:"-"`
}

const (
	SinkNone = "none"
	SinkPDF  = "pdf"
	SinkAMQP = "amqp"
)

// LoadConfig reads the YAML file at path. Any key can be overridden from the
// environment with the LEDGER_ prefix, e.g. LEDGER_DATABASE_CONN_STR.
// With an empty path only defaults and the environment apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("node", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("database.conn_str", "")
	v.SetDefault("database.store_timeout", 5*time.Second)
	v.SetDefault("ledger.overdraft_guard", false)
	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.retry_base_delay", 20*time.Millisecond)
	v.SetDefault("notifications.sink", SinkNone)
	v.SetDefault("notifications.receipt_dir", "receipts")
	v.SetDefault("notifications.amqp_url", "")
	v.SetDefault("notifications.exchange", "ledger.operations")
	v.SetDefault("notifications.queue_size", 256)
	v.SetDefault("audit.missing_revision", string(MissingRevisionSkip))
	v.SetDefault("audit.schedule", "")
	v.SetDefault("limits.concurrency", 64)
	v.SetDefault("limits.acquire_timeout", 2*time.Second)

	v.SetEnvPrefix("ledger")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Ledger.StoreTimeout = cfg.Database.StoreTimeout
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	fields := map[string]string{}
	switch c.Notifications.Sink {
	case SinkNone, SinkPDF, SinkAMQP:
	default:
		fields["notifications.sink"] = "must be one of none, pdf, amqp"
	}
	switch MissingRevisionPolicy(c.Audit.MissingRevision) {
	case MissingRevisionSkip, MissingRevisionFail:
	default:
		fields["audit.missing_revision"] = "must be skip or fail"
	}
	if c.Node < 0 || c.Node > 1023 {
		fields["node"] = "must be within 0-1023"
	}
	if len(fields) > 0 {
		return ErrBadRequest{Fields: fields}
	}
	return nil
}
