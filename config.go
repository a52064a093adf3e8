package main

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
)

const (
	defaultHostname  = "0.0.0.0"
	defaultPort      = 2112
	defaultCompiler  = "tealscript"
	defaultGenerator = "arc-client-gen"
	defaultTimeoutMs = 30000
	defaultMaxBody   = 2 << 20
	defaultWorkRoot  = "/tmp/archttp"

	defaultFilename = "contract.algo.ts"
	clientFilename  = "client.ts"
)

// artifactSuffixes is the set of compiler outputs surfaced to callers.
var artifactSuffixes = []string{".arc32.json", ".arc56.json"}

// Config is read once at startup and never mutated afterwards. Every
// component that needs a knob receives the value explicitly.
type Config struct {
	Hostname     string
	Port         int
	CompilerBin  string
	GeneratorBin string
	Timeout      time.Duration
	MaxBodyBytes int64
	WorkRoot     string
	TemplateDir  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		glog.Warningf("could not load .env: %v", err)
	}
	config := &Config{
		Hostname:     envString("ARCHTTP_HOSTNAME", defaultHostname),
		Port:         envInt("ARCHTTP_PORT", defaultPort),
		CompilerBin:  envString("ARCHTTP_COMPILER", defaultCompiler),
		GeneratorBin: envString("ARCHTTP_CLIENT_GENERATOR", defaultGenerator),
		Timeout:      time.Duration(envInt("ARCHTTP_TIMEOUT_MS", defaultTimeoutMs)) * time.Millisecond,
		MaxBodyBytes: int64(envInt("ARCHTTP_MAX_BODY_BYTES", defaultMaxBody)),
		WorkRoot:     envString("ARCHTTP_WORK_ROOT", defaultWorkRoot),
		TemplateDir:  envString("ARCHTTP_TEMPLATE_DIR", ""),
	}
	if config.Timeout <= 0 {
		return nil, errors.New("ARCHTTP_TIMEOUT_MS must be positive")
	}
	if config.MaxBodyBytes <= 0 {
		return nil, errors.New("ARCHTTP_MAX_BODY_BYTES must be positive")
	}
	return config, nil
}

func envString(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		glog.Errorf("invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}
