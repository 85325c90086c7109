package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "scorebot/"

type listedPackage struct {
	ImportPath   string
	Imports      []string
	TestImports  []string
	XTestImports []string
}

func main() {
	packages, err := listPackages()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arch-check: %v\n", err)
		os.Exit(1)
	}

	violations := collectViolations(packages)
	if len(violations) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "arch-check: passed\n")
		return
	}

	_, _ = fmt.Fprintf(os.Stdout, "arch-check: architecture violations:\n")
	for _, violation := range violations {
		_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", violation)
	}
	os.Exit(1)
}

func listPackages() ([]listedPackage, error) {
	cmd := exec.Command("go", "list", "-json", "-test", "./...")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("go list -json -test ./...: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(stdout.Bytes()))
	result := make([]listedPackage, 0, 64)
	for {
		var pkg listedPackage
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode go list output: %w", err)
		}
		if pkg.ImportPath == "" {
			continue
		}
		result = append(result, pkg)
	}

	return result, nil
}

func collectViolations(packages []listedPackage) []string {
	found := make(map[string]struct{})

	for _, pkg := range packages {
		record := func(imported string, inTest bool) {
			reason := violationReason(pkg.ImportPath, imported, inTest)
			if reason == "" {
				return
			}
			entry := fmt.Sprintf("%s -> %s (%s)", pkg.ImportPath, imported, reason)
			found[entry] = struct{}{}
		}

		for _, imported := range pkg.Imports {
			record(imported, false)
		}
		for _, imported := range append(append([]string{}, pkg.TestImports...), pkg.XTestImports...) {
			record(imported, true)
		}
	}

	violations := make([]string, 0, len(found))
	for violation := range found {
		violations = append(violations, violation)
	}
	sort.Strings(violations)

	return violations
}

// importRule forbids importer packages from importing a prefix. Rules with
// productionOnly set ignore test imports, which may wire real backends.
type importRule struct {
	importer       string
	forbidden      string
	allowed        []string
	productionOnly bool
	reason         string
}

var importRules = []importRule{
	{
		importer:  "pkg/",
		forbidden: "internal/",
		reason:    "pkg/* must not import internal/*",
		// Contract tests exercise the public packages against a real store.
		productionOnly: true,
	},
	{
		importer:  "pkg/cache",
		forbidden: "pkg/tracker",
		reason:    "pkg/cache must not depend on its consumers",
	},
	{
		importer:  "internal/kernel",
		forbidden: "internal/driver",
		reason:    "internal/kernel must not import internal/driver/*",
	},
	{
		importer:       "modules/",
		forbidden:      "internal/",
		allowed:        []string{"internal/i18n"},
		productionOnly: true,
		reason:         "modules/* may only import internal/i18n",
	},
	{
		importer:  "internal/driver",
		forbidden: "modules/",
		reason:    "internal/driver/* must not import modules/*",
	},
	{
		importer:  "internal/driver",
		forbidden: "internal/kernel",
		reason:    "internal/driver/* must not import internal/kernel",
	},
}

func violationReason(importer, imported string, inTest bool) string {
	importer = strings.TrimSuffix(strings.TrimSuffix(importer, ".test"), "_test")
	if i := strings.Index(importer, " ["); i >= 0 {
		importer = importer[:i]
	}

	for _, rule := range importRules {
		if inTest && rule.productionOnly {
			continue
		}
		if !strings.HasPrefix(importer, modulePrefix+rule.importer) {
			continue
		}
		if !strings.HasPrefix(imported, modulePrefix+rule.forbidden) {
			continue
		}
		if isAllowed(imported, rule.allowed) {
			continue
		}

		return rule.reason
	}

	return ""
}

func isAllowed(imported string, allowed []string) bool {
	for _, prefix := range allowed {
		if imported == modulePrefix+prefix || strings.HasPrefix(imported, modulePrefix+prefix+"/") {
			return true
		}
	}

	return false
}
