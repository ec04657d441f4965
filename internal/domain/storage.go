package domain

import (
	"context"
	"io"
	"time"
)

type ArtifactStore interface {
	Write(ctx context.Context, name string, payload io.Reader, artifact Artifact) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, filter Filter) (*Page, error)
	Find(ctx context.Context, id string) (string, Artifact, error)
	Delete(ctx context.Context, name string) error
	Orphans(ctx context.Context) ([]Orphan, error)
}

// Filter narrows a listing. Zero values disable the corresponding condition.
type Filter struct {
	Type          string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Offset        int
	Limit         int
}

type Page struct {
	Items []Entry
	Total int
}

// Orphan is a payload without a sidecar. ModTime is when the payload was last
// written, which for an in-flight backup is the moment its payload landed.
type Orphan struct {
	Name    string
	ModTime time.Time
}

// Entry pairs a sidecar with the artifact name it belongs to.
type Entry struct {
	Name     string
	Artifact Artifact
}
