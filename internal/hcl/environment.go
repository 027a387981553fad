package hcl

import "strings"

// EnvironmentPrefix marks environment entries that set definition
// variables, e.g. STREAMGRID_VAR_radius=3.
const EnvironmentPrefix = "STREAMGRID_VAR_"

// environmentVariables collects the prefixed entries of environ. The
// variable name keeps its case.
func environmentVariables(environ []string) map[string]string {
	vars := make(map[string]string)
	for _, e := range environ {
		key, value, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(key, EnvironmentPrefix) {
			continue
		}
		if name := strings.TrimPrefix(key, EnvironmentPrefix); name != "" {
			vars[name] = value
		}
	}
	return vars
}
