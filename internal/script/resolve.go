package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolved holds the result of resolving a script URI.
type Resolved struct {
	URI    string
	Path   string
	Scheme string
}

// Resolve resolves a script URI to an executable path.
//
// Supported schemes:
//   - file://name      → filepath.Join(scriptsDir, name)
//   - file:///abs/path → absolute path as-is
func Resolve(uri, scriptsDir string) (*Resolved, error) {
	switch {
	case strings.HasPrefix(uri, "file://"):
		return resolveFile(uri, scriptsDir)
	default:
		return nil, fmt.Errorf("unsupported script URI scheme: %s", uri)
	}
}

func resolveFile(uri, scriptsDir string) (*Resolved, error) {
	raw := strings.TrimPrefix(uri, "file://")

	var path string
	if strings.HasPrefix(raw, "/") {
		path = raw
	} else {
		path = filepath.Join(scriptsDir, raw)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("script not found: %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("script is a directory: %s", path)
	}
	if info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("script is not executable: %s", path)
	}

	return &Resolved{
		URI:    uri,
		Path:   path,
		Scheme: "file",
	}, nil
}
