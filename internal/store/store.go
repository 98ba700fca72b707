// Package store is the file-based persistence sink for analysis results
// and the loader for news item files.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/newsimpact/pkg/models"
)

// ErrUnsupportedFormat is returned for item files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("store: unsupported file format")

// FileSink writes results as indented JSON files.
type FileSink struct{}

// SaveResults writes one result set to path.
func (FileSink) SaveResults(results []models.AnalysisResult, path string) error {
	return SaveResults(results, path)
}

// SaveDaily writes by-date analyses to path.
func (FileSink) SaveDaily(daily map[string]models.DailyAnalysis, path string) error {
	return SaveDaily(daily, path)
}

// SaveResults writes results to path as indented JSON, creating parent
// directories as needed. A nil slice is written as [].
func SaveResults(results []models.AnalysisResult, path string) error {
	if results == nil {
		results = []models.AnalysisResult{}
	}
	return writeJSON(results, path)
}

// SaveDaily writes a date -> DailyAnalysis mapping to path.
func SaveDaily(daily map[string]models.DailyAnalysis, path string) error {
	if daily == nil {
		daily = map[string]models.DailyAnalysis{}
	}
	return writeJSON(daily, path)
}

// SaveItems writes news items to path as JSON or YAML, chosen by extension.
func SaveItems(items []models.NewsItem, path string) error {
	if items == nil {
		items = []models.NewsItem{}
	}
	if isYAML(path) {
		data, err := yaml.Marshal(items)
		if err != nil {
			return fmt.Errorf("encoding items: %w", err)
		}
		return writeFile(data, path)
	}
	return writeJSON(items, path)
}

// LoadResults reads a file written by SaveResults.
func LoadResults(path string) ([]models.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	var results []models.AnalysisResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decoding results %s: %w", path, err)
	}
	return results, nil
}

// LoadItems reads news items from a .json, .yaml or .yml file. Every item
// must have a title.
func LoadItems(path string) ([]models.NewsItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}

	var items []models.NewsItem
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".json":
		err = json.Unmarshal(data, &items)
	case isYAML(path):
		err = yaml.Unmarshal(data, &items)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding items %s: %w", path, err)
	}

	validate := validator.New()
	for i := range items {
		if err := validate.Struct(items[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return items, nil
}

// SaveReport writes a rendered report, creating parent directories.
func SaveReport(data []byte, path string) error {
	return writeFile(data, path)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return writeFile(append(data, '\n'), path)
}

func writeFile(data []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
