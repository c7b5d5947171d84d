/*
Package cli facilitates building command-line applications that drive vehicle accounts. It defines
a [Config] type that registers common command-line flags (using the Golang flag package) and reads
their environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing sensitive values (the account
password and PIN) in an OS-dependent credential store.

# Examples

	config := cli.NewConfig()
	config.RegisterCommandLineFlags() // Adds flags for account, region, brand, vin, etc.
	flag.Parse()
	if err := config.ReadFromEnvironment(); err != nil {
		panic(err)
	}
	if err := config.LoadCredentials(); err != nil { // Keyring lookup, then interactive prompt
		panic(err)
	}

	client, err := config.Connect(ctx) // Logs in and discovers vehicles.
	if err != nil {
		panic(err)
	}
*/
package cli

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	envparse "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
	"github.com/bluelinky/bluelink-command/pkg/client"

	"github.com/99designs/keyring"
)

// Environment variable names read by [Config.ReadFromEnvironment].
const (
	EnvBluelinkUsername     = "BLUELINK_USERNAME"
	EnvBluelinkPassword     = "BLUELINK_PASSWORD"
	EnvBluelinkPin          = "BLUELINK_PIN"
	EnvBluelinkRegion       = "BLUELINK_REGION"
	EnvBluelinkBrand        = "BLUELINK_BRAND"
	EnvBluelinkVIN          = "BLUELINK_VIN"
	EnvBluelinkLanguage     = "BLUELINK_LANGUAGE"
	EnvBluelinkStampsFile   = "BLUELINK_STAMPS_FILE"
	EnvBluelinkKeyringType  = "BLUELINK_KEYRING_TYPE"
	EnvBluelinkKeyringPass  = "BLUELINK_KEYRING_PASSWORD"
	EnvBluelinkKeyringPath  = "BLUELINK_KEYRING_PATH"
	EnvBluelinkKeyringDebug = "BLUELINK_KEYRING_DEBUG"
)

// Config fields determine how a client authenticates to the vendor's backend. Flag values take
// precedence over environment variables.
type Config struct {
	Username   string `env:"BLUELINK_USERNAME"`
	Password   string `env:"BLUELINK_PASSWORD"`
	PIN        string `env:"BLUELINK_PIN"`
	Region     string `env:"BLUELINK_REGION"`
	Brand      string `env:"BLUELINK_BRAND"`
	VIN        string `env:"BLUELINK_VIN"`
	Language   string `env:"BLUELINK_LANGUAGE"`
	StampsFile string `env:"BLUELINK_STAMPS_FILE"`

	KeyringPass  string `env:"BLUELINK_KEYRING_PASSWORD"`
	KeyringPath  string `env:"BLUELINK_KEYRING_PATH"`
	KeyringDebug bool   `env:"BLUELINK_KEYRING_DEBUG"`

	Backend     keyring.Config `env:"-"`
	BackendType backendType    `env:"-"`

	// HTTPClient overrides the default transport; used by tests.
	HTTPClient *http.Client `env:"-"`

	password *string
}

// NewConfig builds a Config with the default keyring backend settings.
func NewConfig() *Config {
	c := &Config{
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword
	return c
}

// RegisterCommandLineFlags adds the account flags to the default flag set. Call before
// flag.Parse.
func (c *Config) RegisterCommandLineFlags() {
	flag.StringVar(&c.Username, "username", "", "Account email address. Takes precedence over $"+EnvBluelinkUsername+".")
	flag.StringVar(&c.Region, "region", "", "Deployment region: us, ca, eu, cn, or au.")
	flag.StringVar(&c.Brand, "brand", "", "Vehicle brand: hyundai or kia.")
	flag.StringVar(&c.VIN, "vin", "", "Vehicle Identification Number. Defaults to $"+EnvBluelinkVIN+".")
	flag.StringVar(&c.Language, "language", "", "Language code sent to the signin frontends.")
	flag.StringVar(&c.StampsFile, "stamps-file", "", "Optional file:// or https:// override for the stamp tables.")
	flag.Var(&c.BackendType, "keyring-type", "Keyring type ("+supportedBackends()+")")
	flag.BoolVar(&c.KeyringDebug, "keyring-debug", false, "Enable keyring debug logging")
}

// ReadFromEnvironment fills in fields that were not set on the command line. A .env file in the
// working directory is honored when present.
func (c *Config) ReadFromEnvironment() error {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded: %v", err)
	}
	// Values already set by flags win over the environment.
	shadow := Config{}
	if err := envparse.Parse(&shadow); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	merge := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	merge(&c.Username, shadow.Username)
	merge(&c.Password, shadow.Password)
	merge(&c.PIN, shadow.PIN)
	merge(&c.Region, shadow.Region)
	merge(&c.Brand, shadow.Brand)
	merge(&c.VIN, shadow.VIN)
	merge(&c.Language, shadow.Language)
	merge(&c.StampsFile, shadow.StampsFile)
	merge(&c.KeyringPass, shadow.KeyringPass)
	merge(&c.KeyringPath, shadow.KeyringPath)
	if shadow.KeyringDebug {
		c.KeyringDebug = true
	}
	if c.KeyringPath != "" {
		c.Backend.FileDir = c.KeyringPath
	}
	if c.KeyringPass != "" {
		c.password = &c.KeyringPass
	}
	keyring.Debug = c.KeyringDebug
	return nil
}

// LoadCredentials ensures a password and PIN are available: explicit values win, then the system
// keyring, then an interactive prompt. The PIN prompt is skipped when no terminal is attached
// since many commands work without one.
func (c *Config) LoadCredentials() error {
	if c.Password == "" {
		if stored, err := c.LoadSecretFromKeyring(keyringPasswordService); err == nil {
			c.Password = stored
		}
	}
	if c.Password == "" {
		entered, err := c.getPassword("Account password")
		if err != nil {
			return fmt.Errorf("no password available: %w", err)
		}
		c.Password = entered
	}
	if c.PIN == "" {
		if stored, err := c.LoadSecretFromKeyring(keyringPinService); err == nil {
			c.PIN = stored
		}
	}
	return nil
}

// AccountConfig converts the CLI fields into a normalized account configuration.
func (c *Config) AccountConfig() (bluelink.AccountConfig, error) {
	region, err := bluelink.ParseRegion(c.Region)
	if err != nil {
		return bluelink.AccountConfig{}, err
	}
	brand, err := bluelink.ParseBrand(c.Brand)
	if err != nil {
		return bluelink.AccountConfig{}, err
	}
	cfg := bluelink.AccountConfig{
		Username:   c.Username,
		Password:   c.Password,
		PIN:        c.PIN,
		Region:     region,
		Brand:      brand,
		VIN:        c.VIN,
		Language:   c.Language,
		StampsFile: c.StampsFile,
		AutoLogin:  true,
	}
	if err := cfg.Normalize(); err != nil {
		return bluelink.AccountConfig{}, err
	}
	return cfg, nil
}

// Connect logs in to the account and discovers its vehicles.
func (c *Config) Connect(ctx context.Context) (*client.Client, error) {
	cfg, err := c.AccountConfig()
	if err != nil {
		return nil, err
	}
	return client.New(ctx, cfg, c.HTTPClient)
}
