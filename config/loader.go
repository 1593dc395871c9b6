package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/traverse/errors"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

var searchDirs = []string{".", "config", "..", filepath.Join("..", "config")}

// ResolveFiles returns explicit paths when given, otherwise the first match
// in the search directories.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(serviceName+".yaml", serviceName+".yml", "config.yaml", "config.yml")
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(".env."+serviceName, ".env")
	}
	return resolved
}

func (r *Resolver) first(names ...string) string {
	for _, name := range names {
		for _, dir := range searchDirs {
			path := filepath.Join(dir, name)
			if r.FileSystem.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into cfg. A missing file is
// not an error; a file that exists but cannot be parsed is.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("read %s: %v", files.ConfigFile, err)).WithCause(err)
		}
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("load %s: %v", files.EnvFile, err)).WithCause(err)
		}
	}
	bindEnv(v, envPrefix(serviceName), os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return errors.InvalidConfig(fmt.Sprintf("unmarshal config for %s: %v", serviceName, err)).WithCause(err)
	}
	return nil
}

func envPrefix(serviceName string) string {
	p := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
	if p == "" {
		return ""
	}
	return p + "_"
}

// bindEnv sets every prefixed variable under each nested key it could
// denote, so SHARDS_MAX_PARALLEL reaches shards.max_parallel.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || prefix == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, variant := range keyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, value)
		}
	}
}

// keyVariants lists the dotted keys an env name may denote, splitting the
// name at each underscore once:
//
//	SHARDS_MAX_PARALLEL -> [shards_max_parallel shards.max_parallel shards_max.parallel]
func keyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	variants := []string{lower}
	for i := range len(lower) {
		if lower[i] != '_' {
			continue
		}
		dotted := lower[:i] + "." + lower[i+1:]
		if !slices.Contains(variants, dotted) {
			variants = append(variants, dotted)
		}
	}
	return variants
}
