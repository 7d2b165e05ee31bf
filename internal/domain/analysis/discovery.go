package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FACorreiaa/krm-analyzer/pkg/textfold"
)

// SecondaryMarker identifies Findeks reports by file name.
const SecondaryMarker = "findeks"

var reportExtensions = map[string]bool{".pdf": true, ".json": true}

// IsSecondary reports whether a file name looks like a Findeks report.
func IsSecondary(name string) bool {
	return strings.Contains(textfold.Fold(name), SecondaryMarker)
}

// pairKey reduces a file name to what a KRM report and its Findeks report
// share: the folded stem without the marker and separators.
func pairKey(name string) string {
	stem := textfold.Fold(strings.TrimSuffix(name, filepath.Ext(name)))
	stem = strings.ReplaceAll(stem, SecondaryMarker, "")
	stem = strings.ReplaceAll(stem, "krm", "")
	return strings.Trim(strings.Join(strings.FieldsFunc(stem, isSeparator), "_"), "_")
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-' || r == '.'
}

// Discover lists the reports in dir, sorted by name, and pairs each KRM
// report with the Findeks report sharing its name key. When a directory holds
// exactly one of each they are paired regardless of names.
func Discover(dir string) ([]Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var primaries, secondaries []string
	for _, e := range entries {
		if e.IsDir() || !reportExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if IsSecondary(e.Name()) {
			secondaries = append(secondaries, e.Name())
		} else {
			primaries = append(primaries, e.Name())
		}
	}
	sort.Strings(primaries)
	sort.Strings(secondaries)

	byKey := make(map[string]string, len(secondaries))
	for _, name := range secondaries {
		if _, dup := byKey[pairKey(name)]; !dup {
			byKey[pairKey(name)] = name
		}
	}

	jobs := make([]Job, 0, len(primaries))
	for _, name := range primaries {
		job := Job{Primary: filepath.Join(dir, name)}
		if sec, ok := byKey[pairKey(name)]; ok {
			job.Secondary = filepath.Join(dir, sec)
		}
		jobs = append(jobs, job)
	}
	if len(primaries) == 1 && len(secondaries) == 1 && jobs[0].Secondary == "" {
		jobs[0].Secondary = filepath.Join(dir, secondaries[0])
	}
	return jobs, nil
}

// JobFor builds the job for a single report file, pairing it with a Findeks
// report from the same directory when one matches.
func JobFor(path string) (Job, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Job{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Job{}, fmt.Errorf("%s is a directory", path)
	}

	jobs, err := Discover(filepath.Dir(path))
	if err != nil {
		return Job{Primary: path}, nil
	}
	for _, j := range jobs {
		if filepath.Base(j.Primary) == filepath.Base(path) {
			return Job{Primary: path, Secondary: j.Secondary}, nil
		}
	}
	return Job{Primary: path}, nil
}
