package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the reporter reads from its environment.
type Config struct {
	Registry    Registry
	Storage     Storage
	Ledger      Ledger
	Prover      Prover
	Sealer      Sealer
	DeviceStore DeviceStore
	Server      Server
	Pipeline    Pipeline
	LogLevel    string
	LogFormat   string
}

// Registry is the membership service the device registers with.
type Registry struct {
	BaseURL string
	Timeout time.Duration
	Email   string
}

// Storage configures the content-addressed store (Pinata).
type Storage struct {
	PinataJWT     string
	PinataBaseURL string
}

// Ledger configures the EVM chain reports are anchored on.
type Ledger struct {
	RPCURL          string
	ContractAddress string
	PrivateKey      string
	WaitReceipt     bool
	PollInterval    time.Duration
	GasLimit        uint64
}

const (
	ProverRemote  = "remote"
	ProverGroth16 = "groth16"
)

// Prover selects and configures the proving backend.
type Prover struct {
	Backend          string
	URL              string
	Circuit          string
	ProvingKeyPath   string
	VerifyingKeyPath string
}

type Sealer struct {
	Scheme string
}

const (
	DeviceStorePebble = "pebble"
	DeviceStoreRedis  = "redis"
	DeviceStoreMemory = "memory"
)

// DeviceStore selects where identity scalars and the session token live.
// Every backend stays on this machine; redis is accepted only over a unix
// socket or loopback.
type DeviceStore struct {
	Backend string
	Dir     string
	Redis   RedisConfig
}

// RedisConfig configures the local redis backend.
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server captures local API configuration.
type Server struct {
	Addr            string
	APIToken        string
	ShutdownTimeout time.Duration
}

const (
	ModeAnchor = "anchor"
	ModeRelay  = "relay"
)

// Pipeline configures submission.
type Pipeline struct {
	Mode          string
	TreeDepth     int
	SubmitTimeout time.Duration
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &env{}
	cfg := Config{
		Registry: Registry{
			BaseURL: e.str("REGISTRY_URL", ""),
			Timeout: e.duration("REGISTRY_TIMEOUT", 30*time.Second),
			Email:   e.str("REGISTRY_EMAIL", ""),
		},
		Storage: Storage{
			PinataJWT:     e.str("PINATA_JWT", ""),
			PinataBaseURL: e.str("PINATA_URL", "https://api.pinata.cloud"),
		},
		Ledger: Ledger{
			RPCURL:          e.str("LEDGER_RPC_URL", ""),
			ContractAddress: e.str("LEDGER_CONTRACT", ""),
			PrivateKey:      e.str("LEDGER_PRIVATE_KEY", ""),
			WaitReceipt:     e.boolean("LEDGER_WAIT_RECEIPT", false),
			PollInterval:    e.duration("LEDGER_POLL_INTERVAL", 2*time.Second),
			GasLimit:        uint64(e.integer("LEDGER_GAS_LIMIT", 0)),
		},
		Prover: Prover{
			Backend:          e.str("PROVER_BACKEND", ProverRemote),
			URL:              e.str("PROVER_URL", ""),
			Circuit:          e.str("PROVER_CIRCUIT", "whistleblow"),
			ProvingKeyPath:   e.str("PROVER_PK_PATH", ""),
			VerifyingKeyPath: e.str("PROVER_VK_PATH", ""),
		},
		Sealer: Sealer{
			Scheme: e.str("SEALER_SCHEME", "pkcs1v15"),
		},
		DeviceStore: DeviceStore{
			Backend: e.str("DEVICE_STORE", DeviceStorePebble),
			Dir:     e.str("DEVICE_STORE_DIR", defaultStoreDir()),
			Redis: RedisConfig{
				URL:          e.str("REDIS_URL", ""),
				KeyPrefix:    e.str("REDIS_KEY_PREFIX", ""),
				PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
				MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 1),
				DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
		},
		Server: Server{
			Addr:            e.str("REPORTER_ADDR", "127.0.0.1:8787"),
			APIToken:        e.str("REPORTER_API_TOKEN", ""),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Pipeline: Pipeline{
			Mode:          e.str("SUBMIT_MODE", ModeAnchor),
			TreeDepth:     e.integer("TREE_DEPTH", 32),
			SubmitTimeout: e.duration("SUBMIT_TIMEOUT", 5*time.Minute),
		},
		LogLevel:  e.str("LOG_LEVEL", "info"),
		LogFormat: e.str("LOG_FORMAT", "text"),
	}
	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return cfg, nil
}

// Validate checks settings every command needs. Per-command requirements,
// such as ledger credentials for submit, are checked where they are used.
func (c Config) Validate() error {
	var errs []error
	if c.Registry.BaseURL == "" {
		errs = append(errs, errors.New("REGISTRY_URL is required"))
	}
	if c.Pipeline.TreeDepth <= 0 || c.Pipeline.TreeDepth > 64 {
		errs = append(errs, fmt.Errorf("TREE_DEPTH must be between 1 and 64, got %d", c.Pipeline.TreeDepth))
	}
	switch c.Pipeline.Mode {
	case ModeAnchor, ModeRelay:
	default:
		errs = append(errs, fmt.Errorf("SUBMIT_MODE must be %q or %q", ModeAnchor, ModeRelay))
	}
	switch c.Prover.Backend {
	case ProverRemote, ProverGroth16:
	default:
		errs = append(errs, fmt.Errorf("PROVER_BACKEND must be %q or %q", ProverRemote, ProverGroth16))
	}
	switch c.DeviceStore.Backend {
	case DeviceStorePebble, DeviceStoreMemory:
	case DeviceStoreRedis:
		switch {
		case c.DeviceStore.Redis.URL == "":
			errs = append(errs, errors.New("REDIS_URL is required when DEVICE_STORE=redis"))
		case !IsLocalRedisURL(c.DeviceStore.Redis.URL):
			errs = append(errs, errors.New("REDIS_URL must be a unix socket or a loopback address: the device store holds identity secrets"))
		}
	default:
		errs = append(errs, fmt.Errorf("DEVICE_STORE %q is not supported", c.DeviceStore.Backend))
	}
	if !IsLoopback(c.Server.Addr) {
		errs = append(errs, fmt.Errorf("REPORTER_ADDR %q must bind a loopback address", c.Server.Addr))
	}
	return errors.Join(errs...)
}

// ValidateAnchor checks the settings direct anchoring needs.
func (c Config) ValidateAnchor() error {
	var errs []error
	if c.Storage.PinataJWT == "" {
		errs = append(errs, errors.New("PINATA_JWT is required in anchor mode"))
	}
	if c.Ledger.RPCURL == "" {
		errs = append(errs, errors.New("LEDGER_RPC_URL is required in anchor mode"))
	}
	if c.Ledger.ContractAddress == "" {
		errs = append(errs, errors.New("LEDGER_CONTRACT is required in anchor mode"))
	}
	if c.Ledger.PrivateKey == "" {
		errs = append(errs, errors.New("LEDGER_PRIVATE_KEY is required in anchor mode"))
	}
	return errors.Join(errs...)
}

// IsLoopback reports whether addr's host is a loopback address or localhost.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// IsLocalRedisURL reports whether raw names a redis reachable without leaving
// the machine: a unix socket, or a redis(s) URL whose host is loopback.
func IsLocalRedisURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "unix":
		return u.Path != ""
	case "redis", "rediss":
		host := u.Hostname()
		if host == "" {
			return false
		}
		port := u.Port()
		if port == "" {
			port = "6379"
		}
		return IsLoopback(net.JoinHostPort(host, port))
	default:
		return false
	}
}

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".clearcrew"
	}
	return filepath.Join(dir, "clearcrew")
}

// env collects parse errors so one bad variable does not hide the others.
type env struct {
	errs []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
