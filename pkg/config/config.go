// Package config loads the compiler configuration.
//
// A configuration file lists projects. Each project has its own schema, its own set of
// documents and its own output directory:
//
//	projects:
//	  - name: web
//	    schema: [schema/*.graphql]
//	    extensions: [web/extensions/**/*.graphql]
//	    include: ["web/src/**/*.{graphql,ts,tsx}"]
//	    exclude: ["**/node_modules/**"]
//	    output: web/__generated__
//	    persist:
//	      url: https://persisted.example.com/queries
//	      concurrency: 4
//	      retries: 3
//	    validateModuleNames: true
//	    snapshot: .gqlc/web.snapshot
//
// Top level keys can be overridden from the environment with the GQLC_ prefix, e.g.
// GQLC_LOGLEVEL=debug.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	DefaultConfigName = "gqlc"
	EnvPrefix         = "GQLC"
)

var (
	ErrNoProjects       = errors.New("no projects configured")
	ErrInvalidProject   = errors.New("invalid project")
	ErrDuplicateProject = errors.New("duplicate project name")
)

type Persist struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Retries     int    `mapstructure:"retries" yaml:"retries"`
}

type Project struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	Schema     []string `mapstructure:"schema" yaml:"schema"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions,omitempty"`
	Include    []string `mapstructure:"include" yaml:"include"`
	Exclude    []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	// Output is the artifact directory. Files below it are never treated as sources.
	Output              string   `mapstructure:"output" yaml:"output"`
	Persist             *Persist `mapstructure:"persist" yaml:"persist,omitempty"`
	ValidateModuleNames bool     `mapstructure:"validateModuleNames" yaml:"validateModuleNames"`
	Snapshot            string   `mapstructure:"snapshot" yaml:"snapshot,omitempty"`
}

type Config struct {
	// Root is the directory globs are relative to. Defaults to the directory of the config file.
	Root        string        `mapstructure:"root" yaml:"root"`
	LogLevel    string        `mapstructure:"logLevel" yaml:"logLevel"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Debounce    time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Projects    []Project     `mapstructure:"projects" yaml:"projects"`
}

// Load reads the config file at path. An empty path searches gqlc.yaml in the working directory
// and then in the home directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("logLevel", "info")
	v.SetDefault("debounce", 50*time.Millisecond)
	v.SetDefault("concurrency", 0)
	v.SetDefault("root", "")

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", v.ConfigFileUsed(), err)
	}
	if cfg.Root == "" {
		cfg.Root = filepath.Dir(v.ConfigFileUsed())
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize resolves paths against Root, fills defaults and validates projects.
func (c *Config) Normalize() error {
	root, err := resolve("", c.Root)
	if err != nil {
		return err
	}
	c.Root = root
	if len(c.Projects) == 0 {
		return ErrNoProjects
	}

	seen := make(map[string]struct{}, len(c.Projects))
	for i := range c.Projects {
		p := &c.Projects[i]
		if p.Name == "" {
			return fmt.Errorf("%w: project %d has no name", ErrInvalidProject, i)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateProject, p.Name)
		}
		seen[p.Name] = struct{}{}
		if len(p.Schema) == 0 {
			return fmt.Errorf("%w: %s has no schema", ErrInvalidProject, p.Name)
		}
		if len(p.Include) == 0 {
			p.Include = []string{"**/*.graphql"}
		}
		if p.Output == "" {
			p.Output = "__generated__"
		}
		for _, patterns := range [][]string{p.Schema, p.Extensions, p.Include, p.Exclude} {
			for _, pattern := range patterns {
				if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
					return fmt.Errorf("%w: %s has an invalid glob: %s", ErrInvalidProject, p.Name, pattern)
				}
			}
		}
		if p.Output, err = resolve(c.Root, p.Output); err != nil {
			return err
		}
		if p.Snapshot != "" {
			if p.Snapshot, err = resolve(c.Root, p.Snapshot); err != nil {
				return err
			}
		}
		if p.Persist != nil {
			if p.Persist.URL == "" {
				return fmt.Errorf("%w: %s persist has no url", ErrInvalidProject, p.Name)
			}
			if p.Persist.Concurrency <= 0 {
				p.Persist.Concurrency = 4
			}
			if p.Persist.Retries < 0 {
				p.Persist.Retries = 0
			}
		}
	}
	return nil
}

func (c *Config) Project(name string) (*Project, bool) {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i], true
		}
	}
	return nil, false
}

// Print writes the effective configuration as YAML.
func (c *Config) Print(out io.Writer) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// resolve expands ~ and makes path absolute relative to base.
func resolve(base, path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) && base != "" {
		expanded = filepath.Join(base, expanded)
	}
	return filepath.Abs(expanded)
}
