// Package objectstore abstracts the S3-compatible bucket the worker watches.
// Objects are identified by (namespace, path); the worker never touches the
// wire API directly.
package objectstore

import (
	"context"

	"github.com/cast-iron/crucible/types"
)

// KeepFilename is the sentinel object written into otherwise empty staging
// directories. Object stores have no real directories; an empty prefix
// disappears, so the sentinel keeps the layout visible.
const KeepFilename = ".keep"

// Store is the object store surface the worker depends on.
type Store interface {
	// List returns the identifiers under prefix in the namespace. With
	// recursive set the whole subtree is walked; otherwise only direct
	// children are returned.
	List(ctx context.Context, namespace, prefix string, recursive bool) ([]types.ObjectID, error)

	// Read returns the full content of an object.
	Read(ctx context.Context, obj types.ObjectID) ([]byte, error)

	// Write stores data under the identifier, replacing any prior content.
	Write(ctx context.Context, obj types.ObjectID, data []byte) error

	// Download copies an object to a local file.
	Download(ctx context.Context, obj types.ObjectID, localPath string) error

	// Upload stores a local file under the identifier.
	Upload(ctx context.Context, localPath string, obj types.ObjectID) error

	// Move relocates an object. Implemented as copy then delete; the copy
	// must land before the source disappears.
	Move(ctx context.Context, src, dst types.ObjectID) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, obj types.ObjectID) error

	// Metadata returns the object's metadata as a flat string map.
	Metadata(ctx context.Context, obj types.ObjectID) (map[string]string, error)

	// EnsureDirectory makes the directory prefix visible, writing the
	// sentinel object when nothing lives under it yet.
	EnsureDirectory(ctx context.Context, dir types.ObjectID) error
}
