// Package execscript compiles the per-bundle execution scripts: a local
// multi-process launch or a SLURM batch job.
package execscript

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Profile renders the script that runs one bundle from the work directory.
type Profile interface {
	Render(name string, log *zap.Logger) Script
}

// Script is one rendered execution script.
type Script struct {
	Name       string // bundle name
	Path       string // set by Compile
	Text       string
	Executable bool
}

// ScriptName returns the file name of the script for bundle name.
func ScriptName(name string) string { return "run." + name }

// SuccessMarker returns the file a batch job touches when it completes.
func SuccessMarker(name string) string { return "run." + name + ".success" }

// Local launches the calculation directly with an MPI launcher.
type Local struct {
	Env      string
	Launcher string
	Procs    int
	Command  string
}

func (p Local) Render(name string, _ *zap.Logger) Script {
	var b strings.Builder
	b.WriteString("#!/bin/bash -l\n")
	b.WriteString("\n" + p.Env + "\n")
	fmt.Fprintf(&b, "pushd %s || exit 1\n    %s -np %d %s\npopd\n", name, p.Launcher, p.Procs, p.Command)
	return Script{Name: name, Text: b.String(), Executable: true}
}

// Directive is one scheduler option. A list value repeats the option once
// per element.
type Directive struct {
	Key   string
	Value any
}

// Batch submits the calculation to SLURM.
type Batch struct {
	Directives []Directive
	Env        string
	Flags      []Directive // srun flags
	Command    string
}

// DebugTimeLimit is forced on jobs in the debug partition.
const DebugTimeLimit = "00:30:00"

// jobNameLen is how many trailing characters of the bundle name make up the
// default job name.
const jobNameLen = 12

func (p Batch) Render(name string, log *zap.Logger) Script {
	dirs := p.derive(name)

	var b strings.Builder
	b.WriteString("#!/bin/bash -l\n")
	for _, d := range dirs {
		if d.Value == nil {
			log.Warn(fmt.Sprintf("slurm setup %s is not set", d.Key), zap.String("bundle", name))
		}
		for _, v := range values(d.Value) {
			fmt.Fprintf(&b, "#SBATCH --%s=%s\n", d.Key, v)
		}
	}
	b.WriteString("\n" + p.Env + "\n")

	cmd := []string{"srun"}
	for _, f := range p.Flags {
		for _, v := range values(f.Value) {
			cmd = append(cmd, fmt.Sprintf("--%s=%s", f.Key, v))
		}
	}
	cmd = append(cmd, p.Command)
	fmt.Fprintf(&b, "pushd %s || exit 1\n    %s\npopd\n", name, strings.Join(cmd, " "))
	fmt.Fprintf(&b, "\necho $SLURM_JOB_ID > %s\n", SuccessMarker(name))
	return Script{Name: name, Text: b.String()}
}

// derive returns the directives with the per-bundle defaults applied. The
// configured list is not modified.
func (p Batch) derive(name string) []Directive {
	dirs := append([]Directive(nil), p.Directives...)
	set := func(key string, v any) {
		for i := range dirs {
			if dirs[i].Key == key {
				dirs[i].Value = v
				return
			}
		}
		dirs = append(dirs, Directive{Key: key, Value: v})
	}
	get := func(key string) any {
		for _, d := range dirs {
			if d.Key == key {
				return d.Value
			}
		}
		return nil
	}

	if get("job-name") == nil {
		jobName := name
		if len(jobName) > jobNameLen {
			jobName = jobName[len(jobName)-jobNameLen:]
		}
		set("job-name", jobName)
	}
	set("error", name+"/err")
	set("output", name+"/log")
	if get("partition") == "debug" {
		set("time", DebugTimeLimit)
	}
	return dirs
}

// values flattens a directive value into its rendered forms. nil renders as
// one empty value.
func values(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = format(e)
		}
		return out
	case []string:
		return x
	}
	return []string{format(v)}
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
