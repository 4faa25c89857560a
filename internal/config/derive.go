package config

import (
	"fmt"
	"strconv"

	"vaspsweep/internal/execscript"
	"vaspsweep/internal/pseudo"
	"vaspsweep/internal/sweep"
	"vaspsweep/internal/vasp"
)

// Axes converts the loop declarations into sweep axes, in order.
func (c *Config) Axes() ([]sweep.Axis, error) {
	axes := make([]sweep.Axis, 0, len(c.Loop))
	for i, l := range c.Loop {
		target, err := sweep.ParseTarget(l.File)
		if err != nil {
			return nil, fmt.Errorf("loop[%d]: %w", i, err)
		}
		mode, err := sweep.ParseMode(l.Interpolation)
		if err != nil {
			return nil, fmt.Errorf("loop[%d]: %w", i, err)
		}
		if l.Parameter == "" {
			return nil, fmt.Errorf("loop[%d]: %w: parameter not set", i, sweep.ErrInvalidAxis)
		}
		axes = append(axes, sweep.Axis{
			Target:       target,
			Parameter:    l.Parameter,
			Mode:         mode,
			Values:       l.Val,
			AspectRatio:  l.COverA,
			IncludeGamma: l.IncludeGamma,
		})
	}
	return axes, nil
}

// MeshStyle is the style of every generated mesh.
func (c *Config) MeshStyle() (vasp.MeshStyle, error) {
	s, err := vasp.ParseMeshStyle(c.Kpoints.Style)
	if err != nil {
		return 0, fmt.Errorf("kpoints.style: %w", err)
	}
	return s, nil
}

// InlineSettings returns the settings given in the configuration, or nil when
// settings come from an INCAR file.
func (c *Config) InlineSettings() *vasp.Settings {
	if len(c.Incar) == 0 {
		return nil
	}
	s := vasp.NewSettings()
	for _, e := range c.Incar {
		s.Set(e.Key, e.Value)
	}
	return s
}

// PseudoOptions returns the configured pseudopotential selection.
func (c *Config) PseudoOptions() pseudo.Options {
	return pseudo.Options{
		Variants:   c.Calc.Pseudo.Variant.Parts(),
		Functional: c.Calc.Functional,
		Library:    c.Calc.Pseudo.Library,
	}
}

// Active returns the selected executor.
func (c *Config) Active() (ExecutorConfig, bool) {
	if c.Executor == "" {
		return ExecutorConfig{}, false
	}
	exe, ok := c.Executors[c.Executor]
	return exe, ok
}

// Profile builds the execution profile of the selected executor. ok is false
// when no executor is selected.
func (c *Config) Profile() (profile execscript.Profile, ok bool, err error) {
	exe, ok := c.Active()
	if !ok {
		if c.Executor != "" {
			return nil, false, fmt.Errorf("executor %q not defined", c.Executor)
		}
		return nil, false, nil
	}
	switch {
	case exe.Local != nil:
		l := exe.Local
		return execscript.Local{Env: l.Env, Launcher: l.Mpiexec, Procs: l.Nproc, Command: l.Cmd}, true, nil
	case exe.Slurm != nil:
		s := exe.Slurm
		return execscript.Batch{
			Directives: directives(s.Setup),
			Env:        s.Env,
			Flags:      directives(s.SrunFlags),
			Command:    s.Cmd,
		}, true, nil
	}
	return nil, false, fmt.Errorf("executor %q defines neither local nor slurm", c.Executor)
}

// Submit reports whether batch scripts should be submitted after writing.
func (c *Config) Submit() bool {
	exe, ok := c.Active()
	return ok && exe.Slurm != nil && exe.Slurm.Submit
}

// ParallelismOverrides returns the settings implied by the executor's
// parallelism declaration, or nil.
func (c *Config) ParallelismOverrides() (*vasp.Settings, error) {
	exe, ok := c.Active()
	if !ok || exe.Parallelism == nil {
		return nil, nil
	}
	if exe.Slurm == nil {
		return nil, fmt.Errorf("executor %q: parallelism requires a slurm setup", c.Executor)
	}
	raw, _ := exe.Slurm.Setup.Get("nodes")
	nodes, err := toInt(raw)
	if err != nil {
		return nil, fmt.Errorf("executor %q: parallelism: nodes: %w", c.Executor, err)
	}
	s := vasp.NewSettings()
	s.Set(exe.Parallelism.Key, nodes*exe.Parallelism.PerNode)
	return s, nil
}

func directives(m OrderedMap) []execscript.Directive {
	out := make([]execscript.Directive, len(m))
	for i, e := range m {
		out[i] = execscript.Directive{Key: e.Key, Value: e.Value}
	}
	return out
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	case string:
		return strconv.Atoi(x)
	case nil:
		return 0, fmt.Errorf("not set")
	}
	return 0, fmt.Errorf("%v is not an integer", v)
}
