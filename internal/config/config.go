// Package config holds the run configuration: where inputs come from, how the
// sweep is declared, where bundles go, and how they are executed.
//
// Configuration is YAML by default; files ending in .hcl are read as HCL and
// mapped onto the same schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vaspsweep/internal/source"
)

// Environment overrides.
const (
	EnvPseudoLibrary = "VASPSWEEP_PSP_DIR"
	EnvExecutor      = "VASPSWEEP_EXECUTOR"
)

// DispatchTaskFarm requests a task manifest next to the run scripts.
const DispatchTaskFarm = "taskfarm"

// Config is the whole run configuration.
type Config struct {
	Source    SourceConfig              `yaml:"source"`
	Dir       DirConfig                 `yaml:"dir"`
	Calc      CalcConfig                `yaml:"calc"`
	Incar     OrderedMap                `yaml:"incar,omitempty"`
	Kpoints   KpointsConfig             `yaml:"kpoints"`
	Loop      []LoopConfig              `yaml:"loop"`
	Executor  string                    `yaml:"executor"`
	Executors map[string]ExecutorConfig `yaml:"executors"`
	Dispatch  string                    `yaml:"dispatch"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// SourceConfig locates the baseline input. File paths override discovery.
type SourceConfig struct {
	Dir          string `yaml:"dir"`
	source.Files `yaml:",inline"`
}

// DirConfig describes the destination layout. Each list is joined with "-".
type DirConfig struct {
	Prefix    StringList `yaml:"prefix"`
	Suffix    StringList `yaml:"suffix"`
	Subdir    StringList `yaml:"subdir"`
	Overwrite bool       `yaml:"overwrite"`
}

// CalcConfig selects pseudopotentials. An empty Functional defers to the
// supplied POTCAR, then to PBE.
type CalcConfig struct {
	Functional string       `yaml:"functional"`
	Pseudo     PseudoConfig `yaml:"pseudo"`
}

type PseudoConfig struct {
	Variant StringList `yaml:"variant"`
	Library string     `yaml:"library"`
}

type KpointsConfig struct {
	Style string `yaml:"style"` // gamma | monkhorst
}

// LoopConfig declares one sweep axis.
type LoopConfig struct {
	File          string  `yaml:"file"`
	Parameter     string  `yaml:"parameter"`
	Interpolation string  `yaml:"interpolation"`
	Val           []any   `yaml:"val"`
	COverA        float64 `yaml:"c_over_a,omitempty"`
	IncludeGamma  bool    `yaml:"include_gamma,omitempty"`
}

// ExecutorConfig selects exactly one of Local or Slurm.
type ExecutorConfig struct {
	Local       *LocalConfig       `yaml:"local,omitempty"`
	Slurm       *SlurmConfig       `yaml:"slurm,omitempty"`
	Parallelism *ParallelismConfig `yaml:"parallelism,omitempty"`
}

type LocalConfig struct {
	Env     string `yaml:"env"`
	Mpiexec string `yaml:"mpiexec"`
	Nproc   int    `yaml:"nproc"`
	Cmd     string `yaml:"cmd"`
}

type SlurmConfig struct {
	Setup         OrderedMap `yaml:"setup"`
	Env           string     `yaml:"env"`
	SrunFlags     OrderedMap `yaml:"srun_flags"`
	Cmd           string     `yaml:"cmd"`
	Submit        bool       `yaml:"submit"`
	SubmitTimeout string     `yaml:"submit_timeout,omitempty"`
}

// ParallelismConfig derives a settings key from the node count:
// Key = nodes * PerNode.
type ParallelismConfig struct {
	Key     string `yaml:"key"`
	PerNode int    `yaml:"per_node"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{Dir: "."},
		Dir: DirConfig{
			Prefix: StringList{"run"},
		},
		Kpoints: KpointsConfig{Style: "monkhorst"},
		Executors: map[string]ExecutorConfig{
			"local": {Local: &LocalConfig{Mpiexec: "mpirun", Nproc: 4, Cmd: "vasp_std"}},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".hcl") {
			err = decodeHCL(data, path, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv(EnvPseudoLibrary); dir != "" {
		c.Calc.Pseudo.Library = dir
	}
	if name := os.Getenv(EnvExecutor); name != "" {
		c.Executor = name
	}
}

// Marshal renders the resolved configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"console", "json"}
)

// Validate checks the configuration for errors that would only surface
// halfway through a run.
func (c *Config) Validate() error {
	if len(c.Dir.Prefix.Parts()) == 0 {
		return fmt.Errorf("dir.prefix must not be empty")
	}
	if _, err := c.MeshStyle(); err != nil {
		return err
	}
	if _, err := c.Axes(); err != nil {
		return err
	}
	if c.Executor != "" {
		exe, ok := c.Executors[c.Executor]
		if !ok {
			return fmt.Errorf("executor %q not defined (defined: %v)", c.Executor, c.executorNames())
		}
		if (exe.Local == nil) == (exe.Slurm == nil) {
			return fmt.Errorf("executor %q must define exactly one of local or slurm", c.Executor)
		}
		if exe.Slurm != nil && exe.Slurm.SubmitTimeout != "" {
			if _, err := time.ParseDuration(exe.Slurm.SubmitTimeout); err != nil {
				return fmt.Errorf("executor %q: submit_timeout: %w", c.Executor, err)
			}
		}
		if p := exe.Parallelism; p != nil && (p.Key == "" || p.PerNode <= 0) {
			return fmt.Errorf("executor %q: parallelism needs key and positive per_node", c.Executor)
		}
	}
	if c.Dispatch != "" && c.Dispatch != DispatchTaskFarm {
		return fmt.Errorf("invalid dispatch: %s (valid: %s)", c.Dispatch, DispatchTaskFarm)
	}
	if !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	if !slices.Contains(validFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging format: %s (valid: %v)", c.Logging.Format, validFormats)
	}
	return nil
}

func (c *Config) executorNames() []string {
	names := make([]string, 0, len(c.Executors))
	for k := range c.Executors {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// BaseName is the bundle name used when nothing is swept.
func (c *Config) BaseName() string {
	return c.Dir.Prefix.Join()
}

// SubmitTimeout bounds one batch submission.
func (c *Config) SubmitTimeout() time.Duration {
	if exe, ok := c.Executors[c.Executor]; ok && exe.Slurm != nil {
		if d, err := time.ParseDuration(exe.Slurm.SubmitTimeout); err == nil {
			return d
		}
	}
	return 30 * time.Second
}
