package model

import "path/filepath"

// TreeNode is a single node in the recursive deployment tree. Each node
// carries its full subtree of children inline so the tree can be rendered at
// any depth.
//
// Example:
//
//	app.exe -> children: [zip.dll -> children: [zlib1.dll], kernel32.dll (system)]
type TreeNode struct {
	Name           string         `json:"name" yaml:"name"`
	Classification Classification `json:"classification" yaml:"classification"`
	Source         string         `json:"source,omitempty" yaml:"source,omitempty"` // where a deployed DLL was copied from
	Missing        bool           `json:"missing,omitempty" yaml:"missing,omitempty"`
	Children       []*TreeNode    `json:"children,omitempty" yaml:"children,omitempty"`
}

// workItem holds a pending node to be expanded along with the set of ancestor
// paths on the way from the root to this node (used for cycle detection).
type workItem struct {
	path      string
	node      *TreeNode
	ancestors map[string]bool
}

// Tree builds the dependency tree of the invocation, rooted at the root
// binary. Children appear in extraction order. The tree is built iteratively,
// level by level, using a queue instead of recursion.
//
// A DLL deployed by this run is expanded with its own imports. Cycles
// (a.dll -> b.dll -> a.dll) are broken by tracking the ancestor set on the
// path from the root: a child that would close a cycle is emitted as a leaf.
func (r *Report) Tree() *TreeNode {
	edges := map[string][]Decision{}
	for _, d := range r.Decisions {
		edges[d.Binary] = append(edges[d.Binary], d)
	}

	sources := map[string]string{}
	for _, f := range r.Deployed {
		sources[f.Target] = f.Source
	}

	missing := map[string]bool{}
	for _, m := range r.Missing {
		missing[m.RequiredBy+"\x00"+m.Name] = true
	}

	root := &TreeNode{
		Name:           filepath.Base(r.Root),
		Classification: AlreadyDeployed,
	}
	queue := []workItem{{path: r.Root, node: root, ancestors: map[string]bool{r.Root: true}}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		for _, d := range edges[item.path] {
			childPath := filepath.Join(r.TargetDir, d.Dependency)
			child := &TreeNode{
				Name:           d.Dependency,
				Classification: d.Classification,
				Source:         sources[childPath],
				Missing:        missing[item.path+"\x00"+d.Dependency],
			}
			item.node.Children = append(item.node.Children, child)

			if item.ancestors[childPath] {
				continue
			}
			if _, deployed := sources[childPath]; !deployed {
				continue
			}

			childAncestors := make(map[string]bool, len(item.ancestors)+1)
			for k := range item.ancestors {
				childAncestors[k] = true
			}
			childAncestors[childPath] = true

			queue = append(queue, workItem{path: childPath, node: child, ancestors: childAncestors})
		}
	}

	return root
}
