package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	Payout        PayoutConfig        `mapstructure:"payout"`
	Processor     ProcessorConfig     `mapstructure:"processor"`
	LikeNet       LikeNetConfig       `mapstructure:"likenet"`
	Chain         ChainConfig         `mapstructure:"chain"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	QueryTimeout    time.Duration `mapstructure:"queryTimeout"`    // seconds
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LedgerConfig contains ledger ingestion settings
type LedgerConfig struct {
	// UnknownTxSeverity picks how a reconciliation event referencing an
	// unknown provider transaction id is reported: "warn" or "alert"
	UnknownTxSeverity string `mapstructure:"unknownTxSeverity"`
}

// PayoutConfig contains payout initiation settings
type PayoutConfig struct {
	MinimumAmount string        `mapstructure:"minimumAmount"`
	FeePercent    string        `mapstructure:"feePercent"`
	Currency      string        `mapstructure:"currency"`
	LockTimeout   time.Duration `mapstructure:"lockTimeout"` // seconds
}

// ProcessorConfig contains fiat payment processor API settings
type ProcessorConfig struct {
	BaseURL       string        `mapstructure:"baseURL"`
	APIKey        string        `mapstructure:"apiKey"`
	WebhookSecret string        `mapstructure:"webhookSecret"`
	Timeout       time.Duration `mapstructure:"timeout"`    // seconds
	RefreshURL    string        `mapstructure:"refreshURL"` // onboarding refresh redirect
	ReturnURL     string        `mapstructure:"returnURL"`  // onboarding return redirect
}

// LikeNetConfig contains the LIKE token network API settings
type LikeNetConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"` // seconds
}

// ChainConfig contains blockchain synchronizer and vault rail settings
type ChainConfig struct {
	Chain              string `mapstructure:"chain"`
	ChainID            int64  `mapstructure:"chainId"`
	RPCEndpoint        string `mapstructure:"rpcEndpoint"`
	CurationContract   string `mapstructure:"curationContract"`
	VaultContract      string `mapstructure:"vaultContract"`
	SignerKey          string `mapstructure:"signerKey"`
	ConfirmationDepth  uint64 `mapstructure:"confirmationDepth"`
	BatchSize          uint64 `mapstructure:"batchSize"`
	InitialBlock       uint64 `mapstructure:"initialBlock"`
	AlertAfterFailures int    `mapstructure:"alertAfterFailures"`
}

// SchedulerConfig contains cron expressions for background jobs
type SchedulerConfig struct {
	ChainSyncSpec   string        `mapstructure:"chainSyncSpec"`
	SweepSpec       string        `mapstructure:"sweepSpec"`
	BadgeSpec       string        `mapstructure:"badgeSpec"`
	SweepMaxAge     time.Duration `mapstructure:"sweepMaxAge"` // minutes
	SweepBatchLimit int           `mapstructure:"sweepBatchLimit"`
	BadgeThreshold  int64         `mapstructure:"badgeThreshold"`
}

// CollaboratorsConfig contains endpoints of sibling services
type CollaboratorsConfig struct {
	UserServiceURL string        `mapstructure:"userServiceURL"`
	NotifierURL    string        `mapstructure:"notifierURL"`
	AlerterURL     string        `mapstructure:"alerterURL"`
	Timeout        time.Duration `mapstructure:"timeout"` // seconds
}
