package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./.env",
	"../.env",
	"../../.env",
	"./configs/.env",
}

// LoadConfig loads configuration from file based on the environment.
// A missing config file is fine; env vars alone can configure the service.
func LoadConfig() (*Config, error) {
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")

	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env
	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() error {
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 15)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 10)   // seconds

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.queryTimeout", 10)    // seconds

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	v.SetDefault("ledger.unknownTxSeverity", "warn")

	v.SetDefault("payout.minimumAmount", "500")
	v.SetDefault("payout.feePercent", "0.02")
	v.SetDefault("payout.currency", "HKD")
	v.SetDefault("payout.lockTimeout", 30) // seconds

	v.SetDefault("processor.timeout", 15) // seconds
	v.SetDefault("likenet.timeout", 15)   // seconds

	v.SetDefault("chain.chain", "polygon")
	v.SetDefault("chain.chainId", 137)
	v.SetDefault("chain.confirmationDepth", 30)
	v.SetDefault("chain.batchSize", 2000)
	v.SetDefault("chain.alertAfterFailures", 3)

	v.SetDefault("scheduler.chainSyncSpec", "@every 1m")
	v.SetDefault("scheduler.sweepSpec", "@every 10m")
	v.SetDefault("scheduler.badgeSpec", "0 2 * * *")
	v.SetDefault("scheduler.sweepMaxAge", 60) // minutes
	v.SetDefault("scheduler.sweepBatchLimit", 100)
	v.SetDefault("scheduler.badgeThreshold", 100)

	v.SetDefault("collaborators.timeout", 10) // seconds
}

// getEnvironment determines the environment from the SL_ENV variable
func getEnvironment() string {
	env := os.Getenv("SL_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides ensures environment variables override config values
// for sensitive settings
func processEnvOverrides(v *viper.Viper) {
	if dbHost := os.Getenv("SL_DB_HOST"); dbHost != "" {
		v.Set("database.host", dbHost)
	}
	if dbPort := os.Getenv("SL_DB_PORT"); dbPort != "" {
		v.Set("database.port", dbPort)
	}
	if dbUser := os.Getenv("SL_DB_USERNAME"); dbUser != "" {
		v.Set("database.username", dbUser)
	}
	if dbPass := os.Getenv("SL_DB_PASSWORD"); dbPass != "" {
		v.Set("database.password", dbPass)
	}
	if dbName := os.Getenv("SL_DB_NAME"); dbName != "" {
		v.Set("database.database", dbName)
	}

	if serverHost := os.Getenv("SL_SERVER_HOST"); serverHost != "" {
		v.Set("server.host", serverHost)
	}
	if serverPort := os.Getenv("SL_SERVER_PORT"); serverPort != "" {
		v.Set("server.port", serverPort)
	}

	if logLevel := os.Getenv("SL_LOGGER_LEVEL"); logLevel != "" {
		v.Set("logger.level", logLevel)
	}

	if apiKey := os.Getenv("SL_PROCESSOR_API_KEY"); apiKey != "" {
		v.Set("processor.apiKey", apiKey)
	}
	if secret := os.Getenv("SL_PROCESSOR_WEBHOOK_SECRET"); secret != "" {
		v.Set("processor.webhookSecret", secret)
	}
	if apiKey := os.Getenv("SL_LIKENET_API_KEY"); apiKey != "" {
		v.Set("likenet.apiKey", apiKey)
	}
	if rpc := os.Getenv("SL_CHAIN_RPC_ENDPOINT"); rpc != "" {
		v.Set("chain.rpcEndpoint", rpc)
	}
	if signerKey := os.Getenv("SL_CHAIN_SIGNER_KEY"); signerKey != "" {
		v.Set("chain.signerKey", signerKey)
	}
}

// processDurations converts duration fields from their raw config units
func processDurations(config *Config) {
	config.Server.ReadTimeout = time.Duration(config.Server.ReadTimeout) * time.Second
	config.Server.WriteTimeout = time.Duration(config.Server.WriteTimeout) * time.Second
	config.Server.IdleTimeout = time.Duration(config.Server.IdleTimeout) * time.Second
	config.Server.ReadHeaderTimeout = time.Duration(config.Server.ReadHeaderTimeout) * time.Second
	config.Server.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeout) * time.Second

	config.Database.ConnMaxLifetime = time.Duration(config.Database.ConnMaxLifetime) * time.Minute
	config.Database.ConnMaxIdleTime = time.Duration(config.Database.ConnMaxIdleTime) * time.Minute
	config.Database.QueryTimeout = time.Duration(config.Database.QueryTimeout) * time.Second

	config.Payout.LockTimeout = time.Duration(config.Payout.LockTimeout) * time.Second
	config.Processor.Timeout = time.Duration(config.Processor.Timeout) * time.Second
	config.LikeNet.Timeout = time.Duration(config.LikeNet.Timeout) * time.Second
	config.Collaborators.Timeout = time.Duration(config.Collaborators.Timeout) * time.Second
	config.Scheduler.SweepMaxAge = time.Duration(config.Scheduler.SweepMaxAge) * time.Minute
}
