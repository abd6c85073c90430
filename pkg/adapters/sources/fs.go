package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aescanero/datafabric/pkg/ports"
)

var errNotObject = errors.New("document is not an object")

// FSEnumerator implements ports.SourceEnumerator over an fs.FS
type FSEnumerator struct {
	fsys   fs.FS
	root   string
	logger *zap.Logger
}

// NewFSEnumerator creates an enumerator reading every .json, .yaml and .yml
// file below root in fsys
func NewFSEnumerator(fsys fs.FS, root string, logger *zap.Logger) *FSEnumerator {
	if fsys == nil {
		panic("sources: nil file system")
	}
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSEnumerator{fsys: fsys, root: root, logger: logger}
}

// Enumerate returns one document per file, sorted by path.
// A file that cannot be read or decoded yields a document with Err set;
// only a failure to walk the tree is returned as an error.
func (e *FSEnumerator) Enumerate(ctx context.Context) ([]ports.Document, error) {
	var paths []string
	err := fs.WalkDir(e.fsys, e.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isSource(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", e.root, err)
	}
	sort.Strings(paths)

	docs := make([]ports.Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		body, err := e.read(p)
		if err != nil {
			e.logger.Debug("source could not be decoded",
				zap.String("origin", p),
				zap.Error(err))
		}
		docs = append(docs, ports.Document{Origin: p, Body: body, Err: err})
	}
	return docs, nil
}

func (e *FSEnumerator) read(p string) (map[string]interface{}, error) {
	raw, err := fs.ReadFile(e.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if strings.EqualFold(path.Ext(p), ".json") {
		return decodeJSON(raw)
	}
	return decodeYAML(raw)
}

func isSource(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeJSON(raw []byte) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if body == nil {
		return nil, errNotObject
	}
	return body, nil
}

// decodeYAML round-trips through JSON so numbers become float64 and
// nested maps carry string keys
func decodeYAML(raw []byte) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := yaml.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	if body == nil {
		return nil, errNotObject
	}
	normalised, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to normalise YAML: %w", err)
	}
	return decodeJSON(normalised)
}
