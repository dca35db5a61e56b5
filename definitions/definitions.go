// Package definitions embeds the flow definitions shipped with stepwise.
package definitions

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/stepwise/pkg/definition"
)

//go:embed *.yaml
var files embed.FS

// Names lists the built-in flows.
func Names() []string {
	entries, _ := files.ReadDir(".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Load parses a built-in flow by name.
func Load(name string) (*definition.Definition, error) {
	data, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown built-in flow %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return definition.Parse(data)
}
