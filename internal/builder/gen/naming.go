package gen

import (
	"fmt"
	"path"
	"strings"
)

// ObjectSuffix replaces the translation-unit suffix of every source
const ObjectSuffix = ".o"

// CollisionError is returned when two sources flatten to the same object name
type CollisionError struct {
	Object string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("object name collision: %s and %s both map to %s", e.First, e.Second, e.Object)
}

// FlattenObjectName maps a relative source path to a single-level object file name:
//
//	src/net/socket.cpp  -> src_net_socket.o
//	src/io_util.cpp     -> src_io__util.o
//
// Underscores inside a segment are doubled so that they can't be confused with the
// directory separator. The only names this can't tell apart are segments that begin or
// end with an underscore (a_/b vs a/_b), which CheckCollisions reports.
func FlattenObjectName(src string) string {
	src = strings.TrimPrefix(path.Clean(strings.ReplaceAll(src, "\\", "/")), "./")
	src = strings.TrimSuffix(src, path.Ext(src)) + ObjectSuffix

	segments := strings.Split(src, "/")
	for i, seg := range segments {
		segments[i] = strings.ReplaceAll(seg, "_", "__")
	}
	return strings.Join(segments, "_")
}

// objectRef is the quoted flattened name of src under objDir, e.g. "_$(TGT)_obs/src_a.o"
func objectRef(objDir, src string, quote func(string) string) string {
	return objDir + quote(FlattenObjectName(src))
}

// TestBinaryRef is the object ref of a test source with the object suffix removed
func TestBinaryRef(objRef string) string {
	return strings.TrimSuffix(objRef, ObjectSuffix)
}

// CheckCollisions fails if two distinct sources share an object name
func CheckCollisions(sources []string) error {
	owners := make(map[string]string, len(sources))
	for _, src := range sources {
		obj := FlattenObjectName(src)
		if prev, ok := owners[obj]; ok && prev != src {
			return &CollisionError{Object: obj, First: prev, Second: src}
		}
		owners[obj] = src
	}
	return nil
}
