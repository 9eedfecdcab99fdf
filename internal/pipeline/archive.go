package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrRunNotFound is returned when no archived run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Archive keeps completed run reports on disk, one directory per run:
//
//	<dir>/<run-id>/report.json
//	<dir>/<run-id>/stages/<stage>/prompt.md
//	<dir>/<run-id>/stages/<stage>/reply.txt
type Archive struct {
	baseDir string
}

// NewArchive creates an Archive rooted at baseDir.
func NewArchive(baseDir string) *Archive {
	return &Archive{baseDir: baseDir}
}

// DefaultArchive returns an Archive at ~/.hirefactory/runs, creating the directory if needed.
func DefaultArchive() (*Archive, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".hirefactory", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Archive{baseDir: dir}, nil
}

// BaseDir returns the archive's root directory.
func (a *Archive) BaseDir() string {
	return a.baseDir
}

func (a *Archive) runDir(runID string) string {
	return filepath.Join(a.baseDir, runID)
}

func (a *Archive) stageDir(runID, stage string) string {
	return filepath.Join(a.runDir(runID), "stages", stage)
}

func validRunID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

// Save writes the report and each stage's prompt and reply.
func (a *Archive) Save(r *Report) error {
	if err := validRunID(r.RunID); err != nil {
		return err
	}
	for _, s := range r.Stages {
		dir := a.stageDir(r.RunID, s.Stage)
		if s.Prompt != "" {
			if err := writeFileAtomic(filepath.Join(dir, "prompt.md"), []byte(s.Prompt)); err != nil {
				return fmt.Errorf("save %s prompt: %w", s.Stage, err)
			}
		}
		if s.Reply != "" {
			if err := writeFileAtomic(filepath.Join(dir, "reply.txt"), []byte(s.Reply)); err != nil {
				return fmt.Errorf("save %s reply: %w", s.Stage, err)
			}
		}
	}
	if err := writeJSONFile(filepath.Join(a.runDir(r.RunID), "report.json"), r); err != nil {
		return fmt.Errorf("save report %s: %w", r.RunID, err)
	}
	return nil
}

// Get reads a report back, restoring stage prompts and replies when present.
func (a *Archive) Get(runID string) (*Report, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}
	var r Report
	if err := readJSONFile(filepath.Join(a.runDir(runID), "report.json"), &r); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	for i := range r.Stages {
		dir := a.stageDir(runID, r.Stages[i].Stage)
		if data, err := os.ReadFile(filepath.Join(dir, "prompt.md")); err == nil {
			r.Stages[i].Prompt = string(data)
		}
		if data, err := os.ReadFile(filepath.Join(dir, "reply.txt")); err == nil {
			r.Stages[i].Reply = string(data)
		}
	}
	return &r, nil
}

// List returns all archived reports, oldest first. Unreadable entries are skipped.
func (a *Archive) List() ([]Report, error) {
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", a.baseDir, err)
	}

	var reports []Report
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var r Report
		if err := readJSONFile(filepath.Join(a.baseDir, entry.Name(), "report.json"), &r); err != nil {
			continue
		}
		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].StartedAt != reports[j].StartedAt {
			return reports[i].StartedAt < reports[j].StartedAt
		}
		return reports[i].RunID < reports[j].RunID
	})
	return reports, nil
}

// Delete removes all data for a run.
func (a *Archive) Delete(runID string) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	dir := a.runDir(runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	return os.RemoveAll(dir)
}
