package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/timgst1/policyd/internal/observability"
)

type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	// ReadinessStrict makes /readyz also require a usable event publisher
	// and a loaded RBAC policy, not just the database.
	ReadinessStrict bool

	SQLitePath     string
	TokenFile      string
	RBACPolicyFile string

	NATSURL           string
	NATSSubjectPrefix string

	PlatformIssuer string
	TraceStdout    bool
}

func LoadConfig() (Config, error) {
	var cfg Config
	var err error

	//HTTP_ADDR / GRPC_ADDR
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", "0.0.0.0:8080")
	cfg.GRPCAddr = getenvDefault("GRPC_ADDR", "0.0.0.0:9090")

	//LOG_LEVEL / LOG_FORMAT
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	//SHUTDOWN_TIMEOUT: seconds or a duration
	if cfg.ShutdownTimeout, err = parseTimeout(getenvDefault("SHUTDOWN_TIMEOUT", "10")); err != nil {
		return cfg, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	//READINESS_STRICT
	if cfg.ReadinessStrict, err = getenvBool("READINESS_STRICT", true); err != nil {
		return cfg, err
	}

	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "./data/policyd.db")
	cfg.TokenFile = os.Getenv("TOKEN_FILE")
	cfg.RBACPolicyFile = os.Getenv("RBAC_POLICY_FILE")

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "policy")

	cfg.PlatformIssuer = os.Getenv("PLATFORM_ISSUER")
	if cfg.TraceStdout, err = getenvBool("TRACE_STDOUT", false); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// BindFlags registers serve flags whose defaults are the values already in
// cfg, so flags override the environment.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address (env HTTP_ADDR)")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address (env GRPC_ADDR)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or text (env LOG_FORMAT)")
	fs.Var((*timeoutValue)(&cfg.ShutdownTimeout), "shutdown-timeout", "graceful shutdown limit, seconds or a duration like 1m30s (env SHUTDOWN_TIMEOUT)")
	fs.BoolVar(&cfg.ReadinessStrict, "readiness-strict", cfg.ReadinessStrict, "readiness also checks events and RBAC (env READINESS_STRICT)")
	fs.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "path to sqlite db file (env SQLITE_PATH)")
	fs.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "bearer token file; empty disables authentication (env TOKEN_FILE)")
	fs.StringVar(&cfg.RBACPolicyFile, "rbac-policy", cfg.RBACPolicyFile, "RBAC policy YAML; empty allows everything (env RBAC_POLICY_FILE)")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for change events; empty keeps them in process (env NATS_URL)")
	fs.StringVar(&cfg.NATSSubjectPrefix, "nats-subject-prefix", cfg.NATSSubjectPrefix, "NATS subject prefix (env NATS_SUBJECT_PREFIX)")
	fs.StringVar(&cfg.PlatformIssuer, "platform-issuer", cfg.PlatformIssuer, "issuer advertised in the well-known configuration (env PLATFORM_ISSUER)")
	fs.BoolVar(&cfg.TraceStdout, "trace-stdout", cfg.TraceStdout, "export traces to stdout (env TRACE_STDOUT)")
}

func (cfg Config) Validate() error {
	if cfg.HTTPAddr == "" || cfg.GRPCAddr == "" {
		return fmt.Errorf("listen addresses must not be empty")
	}
	if _, err := observability.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	if cfg.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH must not be empty")
	}
	return nil
}

// parseTimeout reads a bare integer as seconds and anything else as a
// time.ParseDuration string.
func parseTimeout(v string) (time.Duration, error) {
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(v); err != nil {
		return 0, fmt.Errorf("want seconds or a duration, got %q", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %q", v)
	}
	return d, nil
}

// timeoutValue is a pflag.Value using parseTimeout.
type timeoutValue time.Duration

func (t *timeoutValue) Set(v string) error {
	d, err := parseTimeout(v)
	if err != nil {
		return err
	}
	*t = timeoutValue(d)
	return nil
}

func (t *timeoutValue) String() string { return time.Duration(*t).String() }

func (t *timeoutValue) Type() string { return "duration" }

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", k, v)
	}
	return b, nil
}
