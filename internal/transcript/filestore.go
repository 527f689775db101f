package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore keeps one transcript file and one feedback file per room under a
// data directory. Writes go through a temp file and rename so a crashed
// process never leaves a truncated record behind.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("file store: empty data dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveTranscript(_ context.Context, record Record) error {
	return s.writeJSON(s.transcriptPath(record.RoomID), record)
}

func (s *FileStore) GetTranscript(_ context.Context, roomID string) (Record, error) {
	var r Record
	if err := s.readJSON(s.transcriptPath(roomID), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *FileStore) HasTranscript(_ context.Context, roomID string) (bool, error) {
	return s.exists(s.transcriptPath(roomID))
}

func (s *FileStore) SaveFeedback(_ context.Context, report FeedbackReport) error {
	return s.writeJSON(s.feedbackPath(report.RoomID), report)
}

func (s *FileStore) GetFeedback(_ context.Context, roomID string) (FeedbackReport, error) {
	var r FeedbackReport
	if err := s.readJSON(s.feedbackPath(roomID), &r); err != nil {
		return FeedbackReport{}, err
	}
	return r, nil
}

func (s *FileStore) HasFeedback(_ context.Context, roomID string) (bool, error) {
	return s.exists(s.feedbackPath(roomID))
}

func (s *FileStore) RoomIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file store: read dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".transcript.json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".transcript.json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) transcriptPath(roomID string) string {
	return filepath.Join(s.dir, encodeRoomID(roomID)+".transcript.json")
}

func (s *FileStore) feedbackPath(roomID string) string {
	return filepath.Join(s.dir, encodeRoomID(roomID)+".feedback.json")
}

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: write: %w", err)
	}
	// The save path runs right before session teardown, so the record must be
	// on disk before this returns.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

func (s *FileStore) readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("file store: read: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("file store: unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileStore) exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("file store: stat: %w", err)
}

// Room ids are caller-supplied; keep filenames flat and filesystem-safe.
func encodeRoomID(roomID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, roomID)
}
