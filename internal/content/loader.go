// Package content reads, checks and ships daily puzzle files.
package content

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"tc-auditor-service/internal/domain"
)

// SampleDate is the date of the puzzle bundled with the binary.
const SampleDate = "2025-01-20"

//go:embed sample/*.yaml
var sampleFS embed.FS

var extensions = []string{".yaml", ".yml", ".json"}

// Sample returns the bundled demo puzzle.
func Sample() (domain.Puzzle, error) {
	data, err := sampleFS.ReadFile("sample/" + SampleDate + ".yaml")
	if err != nil {
		return domain.Puzzle{}, err
	}
	return Decode(data, ".yaml")
}

// Decode parses a puzzle document. ext selects the format and must be one of
// .yaml, .yml or .json.
func Decode(data []byte, ext string) (domain.Puzzle, error) {
	var p domain.Puzzle
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return domain.Puzzle{}, fmt.Errorf("decode yaml: %w", err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return domain.Puzzle{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return domain.Puzzle{}, fmt.Errorf("unsupported puzzle format %q", ext)
	}
	return p, nil
}

// LoadFile reads a single puzzle file.
func LoadFile(path string) (domain.Puzzle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Puzzle{}, err
	}
	p, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadDir reads every puzzle file directly under dir, sorted by date.
// Two files describing the same date are rejected.
func LoadDir(dir string) ([]domain.Puzzle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]string)
	var puzzles []domain.Puzzle
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := byDate[p.Date]; ok {
			return nil, fmt.Errorf("%s and %s both define %s: %w", prev, path, p.Date, domain.ErrPuzzleExists)
		}
		byDate[p.Date] = path
		puzzles = append(puzzles, p)
	}

	sort.Slice(puzzles, func(i, j int) bool { return puzzles[i].Date < puzzles[j].Date })
	return puzzles, nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DirLoader serves puzzles from files named after their date (2025-01-20.yaml).
type DirLoader struct {
	dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

func (l *DirLoader) LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Puzzle{}, err
	}
	for _, ext := range extensions {
		path := filepath.Join(l.dir, date+ext)
		p, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Puzzle{}, err
		}
		if p.Date != date {
			return domain.Puzzle{}, &domain.PuzzleError{
				Date:     date,
				Problems: []string{fmt.Sprintf("%s declares date %q", path, p.Date)},
			}
		}
		return p, nil
	}
	return domain.Puzzle{}, domain.ErrPuzzleNotFound
}
