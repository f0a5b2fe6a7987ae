package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/mesos-packager/internal/service/common"
)

// ManifestSuffix ends every release manifest file name.
const ManifestSuffix = ".manifest.yaml"

// defaultMapCapacity is the initial capacity for the file map.
const defaultMapCapacity = 2

// Manifest describes the packages produced by one run.
type Manifest struct {
	// RunID identifies the pipeline run.
	RunID string `yaml:"run_id"`
	// Name is the product name.
	Name string `yaml:"name"`
	// Version is the upstream version.
	Version string `yaml:"version"`
	// Revision is the package iteration.
	Revision string `yaml:"revision"`
	// Platform is the resolved platform, family/major.
	Platform string `yaml:"platform"`
	// Arch is the package architecture.
	Arch string `yaml:"arch"`
	// Format is deb or rpm.
	Format string `yaml:"format"`
	// Dependencies are the runtime dependencies of the main package.
	Dependencies []string `yaml:"dependencies"`
	// Files maps package file names to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
	// CreatedAt is when the manifest was written.
	CreatedAt time.Time `yaml:"created_at"`
}

// ManifestFileName returns the manifest file name for a release.
func ManifestFileName(name, version, revision string) string {
	return fmt.Sprintf("%s_%s-%s%s", name, version, revision, ManifestSuffix)
}

// NewManifest produces a Manifest with an empty file map.
func NewManifest() *Manifest {
	return &Manifest{
		Files: make(map[string]string, defaultMapCapacity),
	}
}

// Add records the checksum of a package file under its base name.
func (m *Manifest) Add(path string) error {
	checksum, err := common.FileChecksum(path)
	if err != nil {
		return fmt.Errorf("checksum %s: %w", path, err)
	}

	m.Files[filepath.Base(path)] = common.EncodeChecksum(checksum)

	return nil
}

// FileNames returns the recorded file names in order.
func (m *Manifest) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	contents, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(path, contents, common.RegularFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	m := NewManifest()
	if err = yaml.Unmarshal(contents, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return m, nil
}
