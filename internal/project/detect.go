// Package project detects the shape of a Ruby workspace (gem, Rails
// app, plain library) and persists the detection in a manifest so later
// runs and editors can read it without re-scanning.
package project

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Flavor classifies how the workspace is organized.
type Flavor string

const (
	FlavorGem     Flavor = "gem"
	FlavorRails   Flavor = "rails"
	FlavorBundler Flavor = "bundler"
	FlavorPlain   Flavor = "plain"
)

// TestFramework identifies the workspace's test convention.
type TestFramework string

const (
	TestRSpec    TestFramework = "rspec"
	TestMinitest TestFramework = "minitest"
	TestUnknown  TestFramework = "unknown"
)

// Manifest stores detected workspace information in .rbls/project.toml.
type Manifest struct {
	Flavor        Flavor        `toml:"flavor"`
	TestFramework TestFramework `toml:"testFramework"`
	Sorbet        bool          `toml:"sorbet"`
	SourceDirs    []string      `toml:"sourceDirs"`
	DetectedAt    time.Time     `toml:"detectedAt"`
}

// Detect inspects a workspace root and classifies it. Detection only
// looks at well-known marker files, never at source content.
func Detect(root string) *Manifest {
	m := &Manifest{
		Flavor:        FlavorPlain,
		TestFramework: TestUnknown,
		DetectedAt:    time.Now().UTC(),
	}

	switch {
	case exists(filepath.Join(root, "config", "application.rb")):
		m.Flavor = FlavorRails
	case hasGemspec(root):
		m.Flavor = FlavorGem
	case exists(filepath.Join(root, "Gemfile")):
		m.Flavor = FlavorBundler
	}

	switch {
	case exists(filepath.Join(root, "spec")):
		m.TestFramework = TestRSpec
	case exists(filepath.Join(root, "test")):
		m.TestFramework = TestMinitest
	}

	m.Sorbet = exists(filepath.Join(root, "sorbet", "config"))

	for _, dir := range []string{"lib", "app", "config", "spec", "test"} {
		if exists(filepath.Join(root, dir)) {
			m.SourceDirs = append(m.SourceDirs, dir)
		}
	}
	if len(m.SourceDirs) == 0 {
		m.SourceDirs = []string{"."}
	}
	return m
}

func hasGemspec(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".gemspec" {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveManifest writes the manifest to .rbls/project.toml.
func SaveManifest(root string, m *Manifest) error {
	dir := filepath.Join(root, ".rbls")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "project.toml"), data, 0644)
}

// LoadManifest reads .rbls/project.toml, or nil when absent.
func LoadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ".rbls", "project.toml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
