package output

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/StinkyLord/deploy-dll/internal/fingerprints"
	"github.com/StinkyLord/deploy-dll/internal/model"
)

// ---- CycloneDX 1.4 JSON schema types ----

type cdxBOM struct {
	BOMFormat      string          `json:"bomFormat"`
	SpecVersion    string          `json:"specVersion"`
	Version        int             `json:"version"`
	SerialNumber   string          `json:"serialNumber"`
	Metadata       cdxMetadata     `json:"metadata"`
	Components     []cdxComponent  `json:"components"`
	Dependencies   []cdxDependency `json:"dependencies,omitempty"`
	DependencyTree []*cdxTreeNode  `json:"x-dependencyTree,omitempty"`
}

// cdxTreeNode is a recursive tree node for the x-dependencyTree extension.
// The root binary's imports appear at the top level; each deployed DLL
// carries its own imports inline.
//
// Example:
//
//	[
//	  { "name":"libzip.dll", "classification":"unresolved", "source":"C:/vcpkg/bin/libzip.dll",
//	    "children": [
//	      { "name":"zlib1.dll", "classification":"unresolved", "source":"C:/vcpkg/bin/zlib1.dll" },
//	      { "name":"kernel32.dll", "classification":"system" }
//	  ]},
//	  { "name":"kernel32.dll", "classification":"system" }
//	]
type cdxTreeNode struct {
	Name           string         `json:"name"`
	Classification string         `json:"classification"`
	Source         string         `json:"source,omitempty"`
	Missing        bool           `json:"missing,omitempty"`
	Children       []*cdxTreeNode `json:"children,omitempty"`
}

type cdxMetadata struct {
	Timestamp string        `json:"timestamp"`
	Tools     []cdxTool     `json:"tools"`
	Component *cdxComponent `json:"component,omitempty"`
}

type cdxTool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type cdxComponent struct {
	BOMRef      string        `json:"bom-ref,omitempty"`
	Type        string        `json:"type"`
	Name        string        `json:"name"`
	PURL        string        `json:"purl,omitempty"`
	Description string        `json:"description,omitempty"`
	Properties  []cdxProperty `json:"properties,omitempty"`
}

type cdxProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cdxDependency represents one node in the CycloneDX dependency graph.
// "ref" is the PURL of the binary; "dependsOn" lists the PURLs of its imports.
type cdxDependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn"`
}

func purl(name string) string {
	return "pkg:generic/" + name
}

// WriteCycloneDX serialises the report as a CycloneDX 1.4 JSON BOM and writes
// it to the given output path. If outputPath is "-", it writes to stdout.
func WriteCycloneDX(report *model.Report, outputPath string, toolVersion string) error {
	bom := buildCycloneDX(report, toolVersion)

	data, err := json.MarshalIndent(bom, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal CycloneDX JSON")
	}
	return writeBytes(outputPath, data)
}

func buildCycloneDX(report *model.Report, toolVersion string) cdxBOM {
	rootName := filepath.Base(report.Root)

	// Sort components by name for deterministic output
	deployed := make([]model.DeployedFile, len(report.Deployed))
	copy(deployed, report.Deployed)
	sort.Slice(deployed, func(i, j int) bool {
		return deployed[i].Name < deployed[j].Name
	})

	comps := make([]cdxComponent, 0, len(deployed))
	for _, f := range deployed {
		comp := cdxComponent{
			BOMRef: purl(f.Name),
			Type:   "library",
			Name:   f.Name,
			PURL:   purl(f.Name),
			Properties: []cdxProperty{
				{Name: "deploy:source", Value: f.Source},
				{Name: "deploy:requiredBy", Value: filepath.Base(f.RequiredBy)},
				{Name: "deploy:format", Value: f.Format},
			},
		}

		// Name the upstream package when the DLL is a well-known one
		if fp := fingerprints.MatchDLL(f.Name); fp != nil {
			comp.Description = fp.Description
			comp.Properties = append(comp.Properties,
				cdxProperty{Name: "deploy:package", Value: fp.Name},
				cdxProperty{Name: "deploy:packagePurl", Value: fp.PURL},
			)
		}
		comps = append(comps, comp)
	}

	// Build the dependency graph: one entry per inspected binary
	graph := map[string][]string{}
	var order []string
	for _, d := range report.Decisions {
		ref := purl(filepath.Base(d.Binary))
		if _, seen := graph[ref]; !seen {
			order = append(order, ref)
			graph[ref] = []string{}
		}
		child := purl(d.Dependency)
		if !slices.Contains(graph[ref], child) {
			graph[ref] = append(graph[ref], child)
		}
	}
	sort.Strings(order)

	deps := make([]cdxDependency, 0, len(order))
	for _, ref := range order {
		deps = append(deps, cdxDependency{Ref: ref, DependsOn: graph[ref]})
	}

	var tree []*cdxTreeNode
	for _, child := range report.Tree().Children {
		tree = append(tree, modelNodeToCDX(child))
	}

	timestamp := report.FinishedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return cdxBOM{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.4",
		Version:      1,
		SerialNumber: serialNumber(report.RunID),
		Metadata: cdxMetadata{
			Timestamp: timestamp.UTC().Format(time.RFC3339),
			Tools: []cdxTool{
				{
					Vendor:  "StinkyLord",
					Name:    "deploy-dll",
					Version: toolVersion,
				},
			},
			Component: &cdxComponent{
				BOMRef: purl(rootName),
				Type:   "application",
				Name:   rootName,
				PURL:   purl(rootName),
				Properties: []cdxProperty{
					{Name: "deploy:format", Value: report.Format},
				},
			},
		},
		Components:     comps,
		Dependencies:   deps,
		DependencyTree: tree,
	}
}

// modelNodeToCDX converts a model.TreeNode to a cdxTreeNode recursively.
func modelNodeToCDX(n *model.TreeNode) *cdxTreeNode {
	node := &cdxTreeNode{
		Name:           n.Name,
		Classification: n.Classification.String(),
		Source:         n.Source,
		Missing:        n.Missing,
	}
	for _, child := range n.Children {
		node.Children = append(node.Children, modelNodeToCDX(child))
	}
	return node
}

// serialNumber reuses the run ID when it is a UUID so a BOM can be matched
// to the log of the run that produced it.
func serialNumber(runID string) string {
	id, err := uuid.Parse(runID)
	if err != nil {
		id = uuid.New()
	}
	return id.URN()
}
