// Package datasource defines the file-system collaborator the graph engine consumes and
// a local directory implementation of it.
package datasource

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/ritzau/vertex-graph/pkg/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned by ListDir when directory listing is not supported.
	ErrUnavailable = errors.New("directory listing unavailable")
	// ErrInvalidRelocation is returned when a vertex would be moved under itself.
	ErrInvalidRelocation = errors.New("invalid relocation")
)

// Catalog supplies full snapshots of the workspace and vertex lists.
type Catalog interface {
	GetWorkspaces(ctx context.Context) ([]model.Workspace, error)
	GetAllVertices(ctx context.Context) ([]model.Vertex, error)
}

// AssetLister lists the assets of a vertex. The length of each list is its count.
type AssetLister interface {
	ListNotes(ctx context.Context, v model.Vertex) ([]string, error)
	ListImages(ctx context.Context, v model.Vertex) ([]string, error)
	ListLinks(ctx context.Context, v model.Vertex) ([]string, error)
	// ListDir returns entry names of a directory, or ErrUnavailable.
	ListDir(ctx context.Context, dir string) ([]string, error)
}

// Mutator changes vertex records and their storage.
type Mutator interface {
	UpdateVertex(ctx context.Context, v model.Vertex) error
	RemoveVertex(ctx context.Context, v model.Vertex) error
	MoveDirectory(ctx context.Context, src, dst string, progress func(Progress)) error
}

// Opener reveals a path with the operating system.
type Opener interface {
	OpenPath(ctx context.Context, path string) error
}

// Source bundles everything a graph view needs from the data collaborator.
type Source interface {
	Catalog
	AssetLister
	Mutator
}

// Stage of a directory move.
type Stage string

const (
	StageScan Stage = "scan"
	StageMove Stage = "move"
)

// Progress reports a directory move. Current is the path relative to the source.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Moved   int    `json:"moved"`
	Total   int    `json:"total"`
	Current string `json:"current,omitempty"`
}

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
	"webp": true, "bmp": true, "tiff": true, "svg": true,
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsImage reports whether name has an image extension.
func IsImage(name string) bool {
	return imageExtensions[extension(name)]
}

// IsNote reports whether name is a markdown note.
func IsNote(name string) bool {
	return extension(name) == "md"
}

// IsOtherFile reports whether an asset directory entry counts as a plain file: not
// hidden, not a record or note, and not an image.
func IsOtherFile(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	switch ext := extension(name); {
	case ext == "json", ext == "md":
		return false
	case imageExtensions[ext]:
		return false
	}
	return true
}
