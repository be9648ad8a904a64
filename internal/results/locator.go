package results

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var runStampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}`)

// ResultFile identifies one k6 event log for a (scenario, target) pair
type ResultFile struct {
	Scenario string
	Target   string
	Name     string
	Path     string
}

// RunStamp returns the sortable run timestamp embedded in the filename, or
// an empty string when the name carries none.
func (f ResultFile) RunStamp() string {
	return runStampPattern.FindString(f.Name)
}

// Locator finds the newest event log for a scenario and target. Filenames
// follow <scenario>_<target>_<timestamp>.json so lexicographic order is
// chronological order.
type Locator struct {
	dir string
}

// NewLocator creates a locator over a results directory
func NewLocator(dir string) *Locator {
	return &Locator{dir: dir}
}

// Dir returns the results directory
func (l *Locator) Dir() string {
	return l.dir
}

// List returns the names of all .json files in the results directory.
// A missing directory is treated as empty.
func (l *Locator) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list results directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Latest picks the most recent file for scenario and target out of names
func (l *Locator) Latest(names []string, scenario, target string) (ResultFile, bool) {
	var matches []string
	for _, name := range names {
		if Matches(name, scenario, target) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return ResultFile{}, false
	}

	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	latest := matches[0]

	return ResultFile{
		Scenario: scenario,
		Target:   target,
		Name:     latest,
		Path:     filepath.Join(l.dir, latest),
	}, true
}

// Locate lists the directory and returns the latest file for the pair
func (l *Locator) Locate(scenario, target string) (ResultFile, bool, error) {
	names, err := l.List()
	if err != nil {
		return ResultFile{}, false, err
	}
	file, ok := l.Latest(names, scenario, target)
	return file, ok, nil
}

// Matches reports whether name is an event log for scenario and target
func Matches(name, scenario, target string) bool {
	return strings.HasPrefix(name, scenario+"_") &&
		strings.Contains(name, "_"+target+"_") &&
		strings.HasSuffix(name, ".json")
}
