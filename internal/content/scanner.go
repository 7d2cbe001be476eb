// Package content discovers content files under a content root and hands them
// to the rest of the pipeline as hashed ContentUnits.
package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// ContentUnit is a single discovered content file.
//
// Identity is the relative path (slash-separated, unique within a scan).
type ContentUnit struct {
	RelativePath string
	Raw          []byte
	Hash         string
	DiscoveredAt time.Time
}

// Warning records a non-fatal problem encountered during a scan.
type Warning struct {
	Path   string
	Reason string
}

// ScanResult holds the discovered units plus any per-file skip warnings.
type ScanResult struct {
	Units    []ContentUnit
	Warnings []Warning
}

// ScanError indicates the content root itself could not be read.
// Individual unreadable files never produce a ScanError.
type ScanError struct {
	Root  string
	Cause error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan content root %s: %v", e.Root, e.Cause)
}

func (e *ScanError) Unwrap() error { return e.Cause }

// Scanner walks a content root and yields ContentUnits for files matching the
// extension allow-list, in lexicographic order of relative path. Each call to
// Scan re-walks the root, so two scans over an unchanged tree produce
// identical sequences.
type Scanner struct {
	root       string
	extensions sets.Set[string]
}

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{".md", ".markdown"}

// NewScanner creates a scanner over root. extensions entries must include the
// leading dot; an empty slice falls back to DefaultExtensions.
func NewScanner(root string, extensions []string) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := sets.New[string]()
	for _, e := range extensions {
		exts.Add(strings.ToLower(e))
	}
	return &Scanner{root: root, extensions: exts}
}

// Scan walks the content root once.
//
// An unreadable root is fatal and returns *ScanError. An unreadable
// individual file is skipped and collected as a warning so one bad file never
// blocks the rest of the site.
func (s *Scanner) Scan() (*ScanResult, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, &ScanError{Root: s.root, Cause: err}
	}

	result := &ScanResult{}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			rel := s.relative(path)
			slog.Warn("Skipping unreadable entry", logfields.Path(rel), logfields.Error(err))
			result.Warnings = append(result.Warnings, Warning{Path: rel, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip hidden files and directories
		if strings.HasPrefix(d.Name(), ".") && path != s.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !s.extensions.Has(strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		rel := s.relative(path)
		data, readErr := os.ReadFile(path) // #nosec G304 - path comes from walking the configured root
		if readErr != nil {
			slog.Warn("Skipping unreadable file", logfields.Path(rel), logfields.Error(readErr))
			result.Warnings = append(result.Warnings, Warning{Path: rel, Reason: readErr.Error()})
			return nil
		}

		result.Units = append(result.Units, ContentUnit{
			RelativePath: rel,
			Raw:          data,
			Hash:         HashBytes(data),
			DiscoveredAt: time.Now(),
		})
		return nil
	})
	if err != nil {
		return nil, &ScanError{Root: s.root, Cause: err}
	}

	// WalkDir is lexical per directory, not across the whole tree; sort the
	// final sequence so downstream ordering is deterministic.
	sort.Slice(result.Units, func(i, j int) bool {
		return result.Units[i].RelativePath < result.Units[j].RelativePath
	})

	slog.Debug("Content scan completed",
		slog.Int("units", len(result.Units)),
		slog.Int("warnings", len(result.Warnings)))
	return result, nil
}

func (s *Scanner) relative(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
