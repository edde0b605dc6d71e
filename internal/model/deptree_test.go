package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Tree(t *testing.T) {
	dir := filepath.FromSlash("/app")
	root := filepath.Join(dir, "app.exe")
	zip := filepath.Join(dir, "zip.dll")
	zlib := filepath.Join(dir, "zlib1.dll")

	r := &Report{
		Root:      root,
		TargetDir: dir,
		Decisions: []Decision{
			{Binary: root, Dependency: "zip.dll", Classification: Unresolved},
			{Binary: root, Dependency: "kernel32.dll", Classification: SystemOwned},
			{Binary: zip, Dependency: "zlib1.dll", Classification: Unresolved},
			{Binary: zlib, Dependency: "zip.dll", Classification: AlreadyDeployed},
			{Binary: zlib, Dependency: "gone.dll", Classification: Unresolved},
		},
		Deployed: []DeployedFile{
			{Name: "zip.dll", Source: "/deps/zip.dll", Target: zip, RequiredBy: root},
			{Name: "zlib1.dll", Source: "/deps/zlib1.dll", Target: zlib, RequiredBy: zip},
		},
		Missing: []MissingDependency{{Name: "gone.dll", RequiredBy: zlib}},
	}

	tree := r.Tree()

	assert.Equal(t, "app.exe", tree.Name)
	require.Len(t, tree.Children, 2)
	zipNode := tree.Children[0]
	assert.Equal(t, "zip.dll", zipNode.Name)
	assert.Equal(t, "/deps/zip.dll", zipNode.Source)
	assert.Equal(t, SystemOwned, tree.Children[1].Classification)
	assert.Empty(t, tree.Children[1].Children)

	require.Len(t, zipNode.Children, 1)
	zlibNode := zipNode.Children[0]
	assert.Equal(t, "zlib1.dll", zlibNode.Name)

	require.Len(t, zlibNode.Children, 2)
	back := zlibNode.Children[0]
	assert.Equal(t, "zip.dll", back.Name)
	assert.Empty(t, back.Children, "cycle back to an ancestor is a leaf")
	assert.True(t, zlibNode.Children[1].Missing)
}

func TestReport_Names(t *testing.T) {
	r := &Report{
		Deployed: []DeployedFile{{Name: "a.dll"}, {Name: "b.dll"}},
		Missing:  []MissingDependency{{Name: "c.dll"}},
	}

	assert.Equal(t, []string{"a.dll", "b.dll"}, r.DeployedNames())
	assert.Equal(t, []string{"c.dll"}, r.MissingNames())
}
