// Package types defines the core identifiers and events shared by the
// crucible worker packages.
package types

import "path"

// ObjectID identifies a single object in the backing object store.
// Namespace is the bucket; Path is the key within it. Paths use POSIX
// separators regardless of host platform and never carry a leading slash.
type ObjectID struct {
	// Namespace is the bucket holding the object.
	Namespace string
	// Path is the object key within the namespace.
	Path string
}

// NewObjectID returns an ObjectID for the given namespace and path.
func NewObjectID(namespace, p string) ObjectID {
	return ObjectID{Namespace: namespace, Path: p}
}

// String renders the identifier as "namespace/path".
func (o ObjectID) String() string {
	return o.Namespace + "/" + o.Path
}

// Parent returns the identifier of the containing directory. The namespace
// is preserved; only the path is shortened. A top-level path yields ".",
// which joins back away cleanly.
func (o ObjectID) Parent() ObjectID {
	return ObjectID{Namespace: o.Namespace, Path: path.Dir(o.Path)}
}

// Filename returns the final element of the path.
func (o ObjectID) Filename() string {
	return path.Base(o.Path)
}

// Rename returns the identifier with the final path element replaced by name.
func (o ObjectID) Rename(name string) ObjectID {
	return ObjectID{Namespace: o.Namespace, Path: path.Join(path.Dir(o.Path), name)}
}

// Join returns the identifier extended by one or more path elements.
// Redundant separators and "." elements are normalized away.
func (o ObjectID) Join(elem ...string) ObjectID {
	parts := append([]string{o.Path}, elem...)
	return ObjectID{Namespace: o.Namespace, Path: path.Join(parts...)}
}
