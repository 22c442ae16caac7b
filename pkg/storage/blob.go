package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key or version token does not exist.
var ErrNotFound = errors.New("blob version not found")

const latestPointer = "LATEST"

// BlobStore is the versioned content persistence contract. Every PutVersion
// creates a new, independently retrievable version under the key; prior
// versions are never overwritten.
type BlobStore interface {
	PutVersion(ctx context.Context, key string, r io.Reader) (string, error)
	GetLatest(ctx context.Context, key string) (io.ReadCloser, error)
	Get(ctx context.Context, key, token string) (io.ReadCloser, error)
}

// LocalBlobStore persists version chains on disk under a base directory.
// Layout: <base>/<key>/<token> per version plus a LATEST pointer file that is
// only updated after the version file is fully durable, so a partial write is
// never reachable through GetLatest.
type LocalBlobStore struct {
	baseDir string
}

// NewLocalBlobStore ensures the base directory exists and returns a handle.
func NewLocalBlobStore(baseDir string) (*LocalBlobStore, error) {
	if baseDir == "" {
		baseDir = "./blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalBlobStore{baseDir: baseDir}, nil
}

// PutVersion streams a new content version under key and returns its token.
// The bytes are written to a temporary file and renamed into place; the
// latest pointer moves only after the rename succeeds.
func (s *LocalBlobStore) PutVersion(ctx context.Context, key string, r io.Reader) (string, error) {
	dir, err := s.keyDir(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}

	token := uuid.NewString()
	tmpPath := filepath.Join(dir, ".tmp-"+token)
	finalPath := filepath.Join(dir, token)

	file, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close() //nolint:errcheck
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write blob stream: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close blob file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("aborted blob write: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalise blob version: %w", err)
	}

	if err := s.pointLatest(dir, token); err != nil {
		return "", err
	}
	return token, nil
}

// GetLatest opens the version named by the key's latest pointer.
func (s *LocalBlobStore) GetLatest(ctx context.Context, key string) (io.ReadCloser, error) {
	dir, err := s.keyDir(key)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, latestPointer))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}
	return s.Get(ctx, key, strings.TrimSpace(string(raw)))
}

// Get opens one exact version by token.
func (s *LocalBlobStore) Get(_ context.Context, key, token string) (io.ReadCloser, error) {
	dir, err := s.keyDir(key)
	if err != nil {
		return nil, err
	}
	if token == "" || strings.ContainsAny(token, `/\`) {
		return nil, ErrNotFound
	}
	file, err := os.Open(filepath.Join(dir, token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob version: %w", err)
	}
	return file, nil
}

// Versions lists the tokens stored under key, ordered by creation time.
func (s *LocalBlobStore) Versions(key string) ([]string, error) {
	dir, err := s.keyDir(key)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list blob versions: %w", err)
	}
	type stamped struct {
		token string
		mod   int64
	}
	versions := make([]stamped, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == latestPointer || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		versions = append(versions, stamped{token: name, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].mod < versions[j].mod })
	tokens := make([]string, len(versions))
	for i, v := range versions {
		tokens[i] = v.token
	}
	return tokens, nil
}

func (s *LocalBlobStore) pointLatest(dir, token string) error {
	tmp := filepath.Join(dir, ".tmp-latest-"+token)
	if err := os.WriteFile(tmp, []byte(token), 0o644); err != nil {
		return fmt.Errorf("stage latest pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, latestPointer)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move latest pointer: %w", err)
	}
	return nil
}

func (s *LocalBlobStore) keyDir(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
