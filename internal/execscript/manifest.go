package execscript

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile lists the run's tasks for a task-farm dispatcher.
const ManifestFile = "tasks.yaml"

// Task is one entry of the manifest. Paths are relative to the work
// directory and Command runs from there.
type Task struct {
	Name    string `yaml:"name"`
	Dir     string `yaml:"dir"`
	Script  string `yaml:"script"`
	Command string `yaml:"command"`
}

// Manifest describes every task of one run.
type Manifest struct {
	RunID string `yaml:"run_id"`
	Tasks []Task `yaml:"tasks"`
}

// NewManifest builds the manifest for the compiled scripts.
func NewManifest(runID string, scripts []Script) Manifest {
	m := Manifest{RunID: runID, Tasks: make([]Task, len(scripts))}
	for i, s := range scripts {
		file := ScriptName(s.Name)
		m.Tasks[i] = Task{Name: s.Name, Dir: s.Name, Script: file, Command: "bash " + file}
	}
	return m
}

func (m Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// WriteManifest writes m into workdir and returns the file path.
func WriteManifest(workdir string, m Manifest) (string, error) {
	data, err := m.Marshal()
	if err != nil {
		return "", err
	}
	path := filepath.Join(workdir, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
