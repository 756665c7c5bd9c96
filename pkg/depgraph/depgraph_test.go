package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResolvesPythonImportWithinWorkingSet(t *testing.T) {
	files := []File{
		{Path: "app/main.py", Language: "python-like", Content: "from app.utils import helper\n"},
		{Path: "app/utils.py", Language: "python-like", Content: "def helper():\n    pass\n"},
	}
	graph := Build(files)
	require.Len(t, graph.Links, 1)
	assert.Equal(t, "app/main.py", graph.Links[0].Source)
	assert.Equal(t, "app/utils.py", graph.Links[0].Target)
}

func TestBuildDropsUnresolvedStdlibImport(t *testing.T) {
	files := []File{
		{Path: "app/main.py", Language: "python-like", Content: "import os\nimport sys\n"},
	}
	graph := Build(files)
	assert.Empty(t, graph.Links)
}

func TestBuildResolvesJSImportAndRequire(t *testing.T) {
	files := []File{
		{Path: "src/index.js", Language: "js-like", Content: "import helper from \"./helper\";\nconst x = require(\"./other\");\n"},
		{Path: "src/helper.js", Language: "js-like", Content: "export default function helper() {}\n"},
		{Path: "src/other.js", Language: "js-like", Content: "module.exports = {};\n"},
	}
	graph := Build(files)
	assert.Len(t, graph.Links, 2)
}

func TestBuildCreatesDockerBaseImageNode(t *testing.T) {
	files := []File{
		{Path: "Dockerfile", Language: "docker", Content: "FROM alpine:3.19\nCMD [\"sh\"]\n"},
	}
	graph := Build(files)
	require.Len(t, graph.Links, 1)
	assert.Equal(t, "docker:alpine:3.19", graph.Links[0].Target)

	var found bool
	for _, n := range graph.Nodes {
		if n.ID == "docker:alpine:3.19" {
			found = true
			assert.Equal(t, "image", n.Type)
		}
	}
	assert.True(t, found)
}

func TestBuildDedupsRepeatedImportOfSameTarget(t *testing.T) {
	files := []File{
		{Path: "app/main.py", Language: "python-like", Content: "from app.utils import helper\nfrom app.utils import other\n"},
		{Path: "app/utils.py", Language: "python-like", Content: "def helper():\n    pass\n"},
	}
	graph := Build(files)
	require.Len(t, graph.Links, 1)
	assert.Equal(t, "app/main.py", graph.Links[0].Source)
	assert.Equal(t, "app/utils.py", graph.Links[0].Target)
}

func TestBuildNodeSizeReflectsOutDegree(t *testing.T) {
	files := []File{
		{Path: "app/main.py", Language: "python-like", Content: "import app.a\nimport app.b\n"},
		{Path: "app/a.py", Language: "python-like", Content: ""},
		{Path: "app/b.py", Language: "python-like", Content: ""},
	}
	graph := Build(files)
	for _, n := range graph.Nodes {
		if n.ID == "app/main.py" {
			assert.Equal(t, 140, n.Size)
		}
		if n.ID == "app/a.py" || n.ID == "app/b.py" {
			assert.Equal(t, 100, n.Size)
		}
	}
}
