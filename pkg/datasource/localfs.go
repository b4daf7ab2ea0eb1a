package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/model"
)

const (
	workspacePrefix = "ws-"
	vertexPrefix    = "vert-"
	recordExt       = ".json"
	linksFile       = "links.json"
)

// FileOps is the file-system surface LocalFS uses.
type FileOps interface {
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(name string) error
	RemoveAll(path string) error
}

// OSFileOps implements FileOps with the os package.
type OSFileOps struct{}

func (OSFileOps) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFileOps) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFileOps) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (OSFileOps) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFileOps) Remove(name string) error                     { return os.Remove(name) }
func (OSFileOps) RemoveAll(path string) error                  { return os.RemoveAll(path) }

// LocalFS serves workspaces and vertices from a data directory:
//
//	<root>/ws-<id>.json     workspace records
//	<root>/vert-<id>.json   vertex records
//	<asset_directory>/      notes (*.md), images, links.json and other files
//
// Relative paths in records resolve against root.
type LocalFS struct {
	root string
	ops  FileOps
	log  *slog.Logger
}

// NewLocalFS creates a LocalFS over root using the real file system.
func NewLocalFS(root string) *LocalFS {
	return NewLocalFSWithOps(root, OSFileOps{})
}

// NewLocalFSWithOps creates a LocalFS with custom file operations.
func NewLocalFSWithOps(root string, ops FileOps) *LocalFS {
	return &LocalFS{root: root, ops: ops, log: logging.New("datasource")}
}

// Root returns the data directory.
func (l *LocalFS) Root() string {
	return l.root
}

// Resolve returns path joined to the data directory unless it is absolute.
func (l *LocalFS) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.root, path)
}

// IsRecord reports whether a file name is a workspace or vertex record.
func IsRecord(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, recordExt) &&
		(strings.HasPrefix(base, workspacePrefix) || strings.HasPrefix(base, vertexPrefix))
}

func (l *LocalFS) recordNames(prefix string) ([]string, error) {
	entries, err := l.ops.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", l.root, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, recordExt) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func readRecords[T any](ctx context.Context, l *LocalFS, prefix string) ([]T, error) {
	names, err := l.recordNames(prefix)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := l.ops.ReadFile(filepath.Join(l.root, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// GetWorkspaces implements Catalog.
func (l *LocalFS) GetWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	return readRecords[model.Workspace](ctx, l, workspacePrefix)
}

// GetAllVertices implements Catalog.
func (l *LocalFS) GetAllVertices(ctx context.Context) ([]model.Vertex, error) {
	return readRecords[model.Vertex](ctx, l, vertexPrefix)
}

// GetVertex reads a single vertex record.
func (l *LocalFS) GetVertex(_ context.Context, id string) (model.Vertex, error) {
	var v model.Vertex
	data, err := l.ops.ReadFile(l.vertexPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return v, fmt.Errorf("vertex %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("failed to read vertex %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to parse vertex %s: %w", id, err)
	}
	return v, nil
}

func (l *LocalFS) vertexPath(id string) string {
	return filepath.Join(l.root, vertexPrefix+id+recordExt)
}

// assetNames lists the files of a vertex asset directory. A vertex without one, or
// whose directory does not exist yet, has no assets.
func (l *LocalFS) assetNames(v model.Vertex, keep func(string) bool) ([]string, error) {
	if v.AssetDirectory == "" {
		return nil, nil
	}
	entries, err := l.ops.ReadDir(l.Resolve(v.AssetDirectory))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list assets of %s: %w", v.ID, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && keep(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListNotes implements AssetLister.
func (l *LocalFS) ListNotes(_ context.Context, v model.Vertex) ([]string, error) {
	return l.assetNames(v, IsNote)
}

// ListImages implements AssetLister.
func (l *LocalFS) ListImages(_ context.Context, v model.Vertex) ([]string, error) {
	return l.assetNames(v, IsImage)
}

// ListLinks implements AssetLister. Links live in links.json as an array of URLs.
func (l *LocalFS) ListLinks(_ context.Context, v model.Vertex) ([]string, error) {
	if v.AssetDirectory == "" {
		return nil, nil
	}
	data, err := l.ops.ReadFile(filepath.Join(l.Resolve(v.AssetDirectory), linksFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read links of %s: %w", v.ID, err)
	}
	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("failed to parse links of %s: %w", v.ID, err)
	}
	return links, nil
}

// ListDir implements AssetLister.
func (l *LocalFS) ListDir(_ context.Context, dir string) ([]string, error) {
	if dir == "" {
		return nil, ErrUnavailable
	}
	entries, err := l.ops.ReadDir(l.Resolve(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// UpdateVertex implements Mutator by rewriting the vertex record.
func (l *LocalFS) UpdateVertex(_ context.Context, v model.Vertex) error {
	if v.ID == "" {
		return errors.New("vertex without id")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vertex %s: %w", v.ID, err)
	}
	if err := l.ops.WriteFile(l.vertexPath(v.ID), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write vertex %s: %w", v.ID, err)
	}
	l.log.Debug("vertex updated", "vertex", v.ID)
	return nil
}

// RemoveVertex implements Mutator: the record goes first, then the asset directory.
func (l *LocalFS) RemoveVertex(_ context.Context, v model.Vertex) error {
	err := l.ops.Remove(l.vertexPath(v.ID))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("vertex %s: %w", v.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to remove vertex %s: %w", v.ID, err)
	}
	if dir := l.Resolve(v.AssetDirectory); dir != "" && dir != l.root {
		if err := l.ops.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove assets of %s: %w", v.ID, err)
		}
	}
	l.log.Info("vertex removed", "vertex", v.ID)
	return nil
}
