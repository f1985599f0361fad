// Package store provides durable filesystem persistence for run artifacts.
// Every artifact of a run lives under a directory keyed by the run id, laid out
// so a completed run can be re-opened later purely from the directory contents.
package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Key is the run-relative path of an artifact, e.g. "plan/book_plan.json".
type Key string

// RunRecordKey is the key under which a run's state record is persisted.
const RunRecordKey Key = "run.json"

// Key constructors for the artifact layout:
//
//	<root>/<run-id>/
//	  run.json
//	  characters/<slug>.json
//	  plan/{book_plan.json, summary.txt, trends.json, style_profile.json}
//	  pages/text/page_NN.json
//	  pages/images/{cover.png, page_NN.png, image_log.txt}
//	  book/{book.html, translation_<lang>.txt}

// CharacterKey returns the key for an extracted character record.
func CharacterKey(slug string) Key {
	return Key("characters/" + slug + ".json")
}

// PlanKey returns the key for the structured book plan.
func PlanKey() Key { return "plan/book_plan.json" }

// PlanSummaryKey returns the key for the human-readable plan summary.
func PlanSummaryKey() Key { return "plan/summary.txt" }

// TrendsKey returns the key for the optional trend research report.
func TrendsKey() Key { return "plan/trends.json" }

// StyleKey returns the key for the optional style profile.
func StyleKey() Key { return "plan/style_profile.json" }

// PageTextKey returns the key for one page's generated text.
func PageTextKey(page int) Key {
	return Key(fmt.Sprintf("pages/text/page_%02d.json", page))
}

// PageImageKey returns the key for one page's generated image.
// Page 0 is the cover.
func PageImageKey(page int) Key {
	if page == 0 {
		return "pages/images/cover.png"
	}
	return Key(fmt.Sprintf("pages/images/page_%02d.png", page))
}

// ImageLogKey returns the key for the per-run image generation log.
func ImageLogKey() Key { return "pages/images/image_log.txt" }

// DocumentKey returns the key for the assembled book document.
func DocumentKey() Key { return "book/book.html" }

// TranslationKey returns the key for a translation summary.
func TranslationKey(lang string) Key {
	return Key("book/translation_" + lang + ".txt")
}

// Artifact is a stored content unit.
type Artifact struct {
	Key         Key
	ContentType string
	Data        []byte
}

// NotFoundError indicates an artifact was requested that was never produced.
type NotFoundError struct {
	RunID uuid.UUID
	Key   Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact %s not found for run %s", e.Key, e.RunID)
}

// Store persists artifacts beneath a root directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// RunDir returns the directory holding a run's artifacts.
func (s *Store) RunDir(runID uuid.UUID) string {
	return filepath.Join(s.root, runID.String())
}

// Path returns the absolute path an artifact key maps to.
func (s *Store) Path(runID uuid.UUID, key Key) string {
	return filepath.Join(s.RunDir(runID), filepath.FromSlash(string(key)))
}

// Put stores or overwrites an artifact. Each Put is independently durable:
// content is written to a temp file in the target directory and renamed into
// place, so a reader never observes a half-written artifact.
func (s *Store) Put(runID uuid.UUID, key Key, data []byte) error {
	path := s.Path(runID, key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to store artifact %s: %w", key, err)
	}
	return nil
}

// PutJSON marshals v with indentation and stores it under key.
func (s *Store) PutJSON(runID uuid.UUID, key Key, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", key, err)
	}
	return s.Put(runID, key, data)
}

// Get retrieves an artifact, returning *NotFoundError if it was never produced.
func (s *Store) Get(runID uuid.UUID, key Key) (*Artifact, error) {
	data, err := os.ReadFile(s.Path(runID, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{RunID: runID, Key: key}
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
	}
	return &Artifact{Key: key, ContentType: contentTypeFor(key), Data: data}, nil
}

// GetJSON retrieves an artifact and unmarshals it into out.
func (s *Store) GetJSON(runID uuid.UUID, key Key, out any) error {
	art, err := s.Get(runID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(art.Data, out); err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an artifact has been produced.
func (s *Store) Exists(runID uuid.UUID, key Key) bool {
	_, err := os.Stat(s.Path(runID, key))
	return err == nil
}

// List returns the sorted keys of all artifacts belonging to a run.
// The walk is restartable: each call re-reads the directory tree.
func (s *Store) List(runID uuid.UUID) ([]Key, error) {
	runDir := s.RunDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return nil, nil
	}

	var keys []Key
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, Key(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts for run %s: %w", runID, err)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// ListRunIDs returns the ids of all runs present under the store root.
func (s *Store) ListRunIDs() ([]uuid.UUID, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read store root: %w", err)
	}

	var ids []uuid.UUID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := uuid.Parse(entry.Name())
		if err != nil {
			continue // unrelated directory
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// contentTypeFor derives a content type from the key's extension.
func contentTypeFor(key Key) string {
	switch filepath.Ext(string(key)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".png":
		return "image/png"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
