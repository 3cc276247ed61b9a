package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
)

// loaderBackend defines the format-specific half of a Loader.
type loaderBackend interface {
	// Load imports a scene from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - scene.Scene: the imported scene
	//   - error: error if loading fails
	Load(path string) (scene.Scene, error)

	// LoadReader imports a scene from a reader stream.
	//
	// Parameters:
	//   - name: the name given to the resulting scene
	//   - r: the reader providing the document
	//
	// Returns:
	//   - scene.Scene: the imported scene
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (scene.Scene, error)
}
