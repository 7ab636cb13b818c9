// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/xsstat/internal/logger"
	"github.com/woozymasta/xsstat/internal/vars"
)

// Target defaults, matching the DarkPlaces default listen address.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 26000
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	// ErrInvalidPort is returned for a port argument outside 1-65535.
	ErrInvalidPort = errors.New("port must be an integer value in range 1-65535")

	// ErrHistoryWithoutDB is returned when history is requested with storage disabled.
	ErrHistoryWithoutDB = errors.New("--db-history and --db-prune-older require --db-path")

	// ErrFakeDataWithoutDB is returned when fake data generation has no database to fill.
	ErrFakeDataWithoutDB = errors.New("--db-gen-fake-data requires --db-path")
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Query     Query         `group:"Query Options" env-namespace:"XSSTAT"`
	Output    Output        `group:"Output Options" env-namespace:"XSSTAT"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"XSSTAT_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"XSSTAT_GEOIP"`
	Server    Server        `group:"Server Options" env-namespace:"XSSTAT"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"XSSTAT_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"XSSTAT_LOG"`

	Args Args `positional-args:"yes"`

	// Target is Args after validation.
	Target Target `no-flag:"true"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Args are the positional arguments.
type Args struct {
	Host string `positional-arg-name:"host" description:"Server host name or IP address (default: 127.0.0.1)"`
	Port string `positional-arg-name:"port" description:"Server port (default: 26000)"`
}

// Target is the queried server.
type Target struct {
	Host string
	Port int
}

// Address returns host:port of the target.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Query holds getstatus request configuration.
type Query struct {
	// betteralign:ignore

	Timeout    time.Duration `short:"T" long:"timeout" env:"TIMEOUT" description:"Time to wait for the status response" default:"6s"`
	BufferSize int           `long:"buffer-size" env:"BUFFER_SIZE" description:"Receive buffer size in bytes" default:"4096"`
}

// Output holds listing options.
type Output struct {
	Format string `short:"f" long:"format" env:"FORMAT" description:"Listing format" choice:"text" choice:"json" default:"text"`
}

// Storage holds snapshot history configuration.
type Storage struct {
	// betteralign:ignore

	Path          string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database, empty disables history"`
	History       int           `long:"history" description:"Print the last N recorded snapshots of the server and exit"`
	PruneOlder    time.Duration `long:"prune-older" description:"Delete snapshots last seen longer ago than this duration and exit"`
	GenerateCount int           `long:"gen-fake-data" hidden:"true"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB from when missing or outdated"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// Server holds HTTP mode configuration.
type Server struct {
	// betteralign:ignore

	Enabled    bool   `short:"s" long:"serve" env:"SERVE" description:"Serve the listing over HTTP instead of printing it"`
	Address    string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken  string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Bearer token for /api/history, empty disables the endpoint"`
	Workers    int    `long:"workers" env:"WORKERS" description:"Snapshot recording workers" default:"2"`
	TrustProxy bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"count" env:"COUNT" description:"Hard IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"window" env:"WINDOW" description:"Hard IP limit: window duration" default:"1m"`
	SoftLimitDur   time.Duration `long:"soft" env:"SOFT" description:"Do not record an unchanged snapshot seen within duration" default:"5m"`
}

// Parse reads the configuration from os.Args and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := parse(flags.Default, os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print(os.Stdout)
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args without printing usage or terminating the process.
func ParseArgs(args []string) (*Config, error) {
	return parse(flags.HelpFlag|flags.PassDoubleDash, args)
}

func parse(options flags.Options, args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, options)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Version {
		return &cfg, nil
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.Target = Target{Host: c.Args.Host, Port: DefaultPort}
	if c.Target.Host == "" {
		c.Target.Host = DefaultHost
	}

	if c.Args.Port != "" {
		port, err := strconv.Atoi(c.Args.Port)
		if err != nil || port <= 0 || port > 65535 {
			return ErrInvalidPort
		}
		c.Target.Port = port
	}

	if c.Query.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Query.Timeout)
	}
	if c.Query.BufferSize < 64 || c.Query.BufferSize > 65535 {
		return fmt.Errorf("buffer size must be in range 64-65535, got %d", c.Query.BufferSize)
	}

	if (c.Storage.History > 0 || c.Storage.PruneOlder > 0) && c.Storage.Path == "" {
		return ErrHistoryWithoutDB
	}
	if c.Storage.GenerateCount > 0 && c.Storage.Path == "" {
		return ErrFakeDataWithoutDB
	}

	if c.Server.Workers < 1 {
		c.Server.Workers = 1
	}

	return nil
}
