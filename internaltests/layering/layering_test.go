package layering_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const module = "github.com/leeforge/picpipe"

// forbidden lists, per package directory, import prefixes it must not use.
var forbidden = map[string][]string{
	"media/processor": {"net/http", module + "/server", module + "/http", module + "/cmd", module + "/config", module + "/media/queue"},
	"media/codec":     {"net/http", module + "/server", module + "/http", module + "/media/storage"},
	"media/palette":   {"net/http", module + "/server", module + "/http", module + "/media/processor"},
	"media/storage":   {module + "/server", module + "/http", module + "/media/processor"},
	"media/queue":     {"net/http", module + "/server", module + "/http"},
	"errors":          {module + "/"},
	"logging":         {module + "/server", module + "/media"},
}

// legacy import paths that must not come back.
var legacy = []string{
	"github.com/leeforge/framework",
	"entgo.io/ent",
	"github.com/casbin/casbin",
	"github.com/go-redis/redis",
}

// imports returns the import paths of the non-test files in dir.
func imports(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	fset := token.NewFileSet()
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, spec := range f.Imports {
			p, err := strconv.Unquote(spec.Path.Value)
			require.NoError(t, err)
			paths = append(paths, p)
		}
	}
	return paths
}

func TestPackageLayering(t *testing.T) {
	root := filepath.Clean("../..")
	for dir, banned := range forbidden {
		t.Run(dir, func(t *testing.T) {
			for _, imp := range imports(t, filepath.Join(root, dir)) {
				for _, b := range banned {
					assert.False(t, strings.HasPrefix(imp, b), "%s imports %s", dir, imp)
				}
			}
		})
	}
}

func TestNoLegacyImports(t *testing.T) {
	root := filepath.Clean("../..")
	var hits []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			for _, l := range legacy {
				if strings.HasPrefix(strings.Trim(spec.Path.Value, `"`), l) {
					hits = append(hits, path+": "+spec.Path.Value)
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
