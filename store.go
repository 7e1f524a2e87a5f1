package nodegraph

import (
	"context"
	"time"
)

// SceneInfo summarizes a stored scene.
type SceneInfo struct {
	ID          string    `json:"id"`
	Nodes       int       `json:"nodes"`
	Connections int       `json:"connections"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store defines the contract for persisting and retrieving scenes.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// SaveScene replaces whatever is stored under id with doc.
	SaveScene(ctx context.Context, id string, doc *Document) error
	// LoadScene returns nil, nil if no scene is stored under id.
	LoadScene(ctx context.Context, id string) (*Document, error)
	// DeleteScene fails with ErrSceneNotFound if id is unknown.
	DeleteScene(ctx context.Context, id string) error
	ListScenes(ctx context.Context) ([]SceneInfo, error)
}
