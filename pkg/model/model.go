package model

import "time"

// Workspace is a top-level container owning a storage directory and a set of root vertices.
type Workspace struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`              // Absolute storage directory of the workspace
	Purpose       string    `json:"purpose,omitempty"` // Free-form description
	RootVertexIDs []string  `json:"root_vertex_ids,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Vertex is a user content node. An empty ParentID marks a root vertex of its workspace.
type Vertex struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	ParentID       string    `json:"parent_id,omitempty"`
	WorkspaceID    string    `json:"workspace_id,omitempty"`
	AssetDirectory string    `json:"asset_directory,omitempty"` // Directory holding notes, images, links and files
	ThumbnailPath  string    `json:"thumbnail_path,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsRoot returns true if the vertex has no parent vertex.
func (v *Vertex) IsRoot() bool {
	return v.ParentID == ""
}

// Counts holds the per-vertex annotations drawn around a hovered node.
type Counts struct {
	Items  int `json:"items"`  // Child vertices
	Notes  int `json:"notes"`  // Markdown notes
	Images int `json:"images"` // Image assets
	Links  int `json:"links"`  // URL links
	Files  int `json:"files"`  // Other files in the asset directory
}

// IsZero returns true if every count is zero.
func (c Counts) IsZero() bool {
	return c == Counts{}
}
