// Package output provides report serializers.
package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// stdout is where "-" writes go; tests replace it.
var stdout io.Writer = os.Stdout

// Write serialises report in the given format to outputPath, or to stdout if
// outputPath is "-".
func Write(report *model.Report, format, outputPath, toolVersion string) error {
	switch format {
	case model.ReportJSON, "":
		return writeJSON(outputPath, report)
	case model.ReportYAML:
		return WriteYAML(report, outputPath)
	case model.ReportTree:
		return WriteDependencyTree(report, outputPath)
	case model.ReportCycloneDX:
		return WriteCycloneDX(report, outputPath, toolVersion)
	default:
		return errors.Errorf("unknown report format %q", format)
	}
}

// WriteYAML serialises the report as YAML.
func WriteYAML(report *model.Report, outputPath string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "failed to marshal report YAML")
	}
	return writeBytes(outputPath, data)
}

// WriteDependencyTree serialises only the dependency tree of the run as JSON.
//
// Example output:
//
//	{
//	  "name": "app.exe",
//	  "classification": "already-deployed",
//	  "children": [
//	    {
//	      "name": "libzip.dll",
//	      "classification": "unresolved",
//	      "source": "C:/vcpkg/installed/x64-windows/bin/libzip.dll",
//	      "children": [
//	        { "name": "zlib1.dll", "classification": "unresolved", "source": "C:/vcpkg/installed/x64-windows/bin/zlib1.dll" }
//	      ]
//	    },
//	    { "name": "kernel32.dll", "classification": "system" }
//	  ]
//	}
func WriteDependencyTree(report *model.Report, outputPath string) error {
	return writeJSON(outputPath, report.Tree())
}

// writeJSON marshals v as indented JSON and writes it to outputPath (or stdout if "-").
func writeJSON(outputPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal report JSON")
	}
	return writeBytes(outputPath, data)
}

func writeBytes(outputPath string, data []byte) error {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	if outputPath == "-" {
		_, err := stdout.Write(data)
		return errors.Wrap(err, "failed to write report")
	}
	return errors.Wrapf(os.WriteFile(outputPath, data, 0644), "failed to write report %s", outputPath)
}
