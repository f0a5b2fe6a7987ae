package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds packaging settings.
type Config struct {
	// Name is the package (and product) name.
	Name string `yaml:"name"`
	// Repository is the source repository locator.
	Repository string `yaml:"repo"`
	// Ref is the branch, tag or commit to check out. Empty means the remote HEAD.
	Ref string `yaml:"ref"`
	// SourceDir is where the source checkout lives.
	SourceDir string `yaml:"src_dir"`
	// BuildDir is the out-of-tree build directory.
	BuildDir string `yaml:"build_dir"`
	// StagingDir is the package root handed to the packager.
	StagingDir string `yaml:"staging_dir"`
	// OutputDir receives package files, the release manifest and the run record.
	OutputDir string `yaml:"output_dir"`
	// Maintainer is written into the package metadata.
	Maintainer string `yaml:"maintainer"`
	// Vendor is written into the package metadata.
	Vendor string `yaml:"vendor"`
	// URL is the project homepage.
	URL string `yaml:"url"`
	// License is the project license identifier.
	License string `yaml:"license"`
	// Description is the package summary.
	Description string `yaml:"description"`
	// FPM is the fpm executable used to assemble packages.
	FPM string `yaml:"fpm"`
	// MetricsFile, when set, receives stage metrics in the Prometheus text format.
	MetricsFile string `yaml:"metrics_file"`
	// Upload configures publishing of finished packages. Nil disables it.
	Upload *Upload `yaml:"upload,omitempty"`
}

// Upload holds S3-compatible object storage settings.
type Upload struct {
	// Endpoint is host[:port] without a scheme.
	Endpoint string `yaml:"endpoint"`
	// AccessKey is the access key id. Falls back to MESOS_PACKAGER_S3_ACCESS_KEY.
	AccessKey string `yaml:"access_key"`
	// SecretKey is the secret key. Falls back to MESOS_PACKAGER_S3_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Bucket receives the packages.
	Bucket string `yaml:"bucket"`
	// Prefix is prepended to object names.
	Prefix string `yaml:"prefix"`
	// UseSSL enables HTTPS.
	UseSSL bool `yaml:"use_ssl"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "mesos-packager.yaml"

	// DefaultName is the default product and package name.
	DefaultName = "mesos"

	// DefaultRepository is the default source repository.
	DefaultRepository = "https://github.com/apache/mesos.git"

	// DefaultFPM is the default packager executable.
	DefaultFPM = "fpm"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// xdgDirectory is the application directory below the XDG config roots.
	xdgDirectory = "mesos-packager"

	accessKeyEnv = "MESOS_PACKAGER_S3_ACCESS_KEY"
	secretKeyEnv = "MESOS_PACKAGER_S3_SECRET_KEY"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNameRequired is returned when the package name is empty.
	errNameRequired = errors.New("package name must be provided")
	// errRepositoryRequired is returned when no repository locator is configured.
	errRepositoryRequired = errors.New("repository must be provided")
	// errInvalidUpload is returned when upload settings are incomplete.
	errInvalidUpload = errors.New("invalid upload settings")
)

// Default returns settings with every default applied.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg) //nolint:errcheck // Defaults always validate.

	return cfg
}

// Resolve loads settings from path, or from the XDG config directories when path is empty.
// A missing file in the XDG lookup yields Default().
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	found, err := xdg.SearchConfigFile(filepath.Join(xdgDirectory, DefaultConfigFilename))
	if err != nil {
		return Default(), nil
	}

	return Load(found)
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Upload credentials may be inside.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	if strings.ContainsAny(cfg.Name, " /_") {
		return fmt.Errorf("%w: %q contains a space, slash or underscore", errNameRequired, cfg.Name)
	}

	if cfg.Repository == "" {
		cfg.Repository = DefaultRepository
	}

	if strings.TrimSpace(cfg.Repository) == "" {
		return errRepositoryRequired
	}

	if cfg.SourceDir == "" {
		cfg.SourceDir = cfg.Name
	}

	if cfg.BuildDir == "" {
		cfg.BuildDir = filepath.Join(cfg.SourceDir, "build")
	}

	if cfg.StagingDir == "" {
		cfg.StagingDir = filepath.Join(cfg.BuildDir, "toor")
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	if cfg.FPM == "" {
		cfg.FPM = DefaultFPM
	}

	if cfg.Description == "" {
		cfg.Description = "Cluster resource manager with efficient resource isolation"
	}

	if cfg.URL == "" {
		cfg.URL = "https://mesos.apache.org/"
	}

	if cfg.License == "" {
		cfg.License = "Apache-2.0"
	}

	if cfg.Upload == nil {
		return nil
	}

	return cfg.Upload.validate()
}

// validate checks upload settings and pulls credentials from the environment when absent.
func (u *Upload) validate() error {
	if u.AccessKey == "" {
		u.AccessKey = os.Getenv(accessKeyEnv)
	}

	if u.SecretKey == "" {
		u.SecretKey = os.Getenv(secretKeyEnv)
	}

	switch {
	case strings.TrimSpace(u.Endpoint) == "":
		return fmt.Errorf("%w: endpoint is required", errInvalidUpload)
	case strings.Contains(u.Endpoint, "://"):
		return fmt.Errorf("%w: endpoint must not include scheme: %q", errInvalidUpload, u.Endpoint)
	case strings.TrimSpace(u.Bucket) == "":
		return fmt.Errorf("%w: bucket is required", errInvalidUpload)
	case u.AccessKey == "" || u.SecretKey == "":
		return fmt.Errorf("%w: access key and secret key are required", errInvalidUpload)
	}

	return nil
}
