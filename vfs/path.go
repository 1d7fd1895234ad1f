package vfs

import (
	"strings"

	"github.com/jmgilman/go/errors"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/image"
)

// HeadTail splits path at its first separator into the first segment
// and everything after it.
func HeadTail(path string) (head, tail string) {
	head, tail, _ = strings.Cut(path, "/")
	return head, tail
}

// InitLast splits path at its last separator into the containing path
// and the final segment. A path without a separator has an empty init.
func InitLast(path string) (init, last string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// resolveDirectory maps a root anchored path onto a directory handle.
// Only paths whose first segment is the root sentinel are accepted; the
// rest is handed to OpenDir in one step.
func resolveDirectory(root stablefs.Directory, path string) (stablefs.Directory, error) {
	head, tail := HeadTail(path)
	if head != image.Root {
		return nil, stablefs.PathErrorf(stablefs.ErrPathFormat, path, "path must start with %q", image.Root+"/")
	}
	if tail == "" {
		return root, nil
	}
	return root.OpenDir(tail)
}

// resolveEntry resolves the directory containing the final segment of
// path and returns it along with that segment.
func resolveEntry(root stablefs.Directory, path string) (stablefs.Directory, string, error) {
	init, name := InitLast(path)
	if name == "" || name == "." || name == ".." {
		return nil, "", stablefs.PathErrorf(stablefs.ErrPathFormat, path, "path names no entry")
	}
	dir, err := resolveDirectory(root, init)
	if err != nil {
		return nil, "", err
	}
	return dir, name, nil
}

// withPath attaches the request path to a failure from a lower layer.
func withPath(err error, path string) error {
	if err == nil {
		return nil
	}
	return errors.WithContext(err, "path", path)
}
