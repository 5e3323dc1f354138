package parser

import (
	"fmt"
	"os"
	"regexp"
)

// usetypesRegex matches one USETYPES directive in an interface definition
// file. Only the dependency name is needed here; full IDL parsing belongs
// to the interface code generator, not this tool.
var usetypesRegex = regexp.MustCompile(`\bUSETYPES\s+([A-Za-z_][A-Za-z0-9_]*)\s*;`)

var apiCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)

// ScanApiDependencies reads an interface definition (.api) file and
// returns the names referenced by its USETYPES directives, in order of
// appearance. Directives inside comments are ignored.
func ScanApiDependencies(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading interface definition: %w", err)
	}
	stripped := apiCommentRegex.ReplaceAll(data, nil)
	var names []string
	for _, match := range usetypesRegex.FindAllSubmatch(stripped, -1) {
		names = append(names, string(match[1]))
	}
	return names, nil
}
