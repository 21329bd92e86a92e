// Package contract defines the delivery contract for a generated project:
// the agreed set of files, HTTP endpoints and database tables the project
// must contain. Contracts are merged by union across agent passes so that
// requirements accumulate and are never lost, and every merge result carries
// a fixed baseline of files and endpoints that all projects ship regardless
// of what was proposed.
package contract

import (
	"fmt"
	"sort"
	"strings"
)

// Endpoint identifies a single HTTP route by method and path.
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Table identifies a database table by name.
type Table struct {
	Name string `json:"name"`
}

// Contract is the agreed deliverable shape of a generated project.
type Contract struct {
	Files     []string   `json:"files"`
	Endpoints []Endpoint `json:"endpoints"`
	Tables    []Table    `json:"tables"`
	Source    string     `json:"source"` // provenance: "llm", "memory_seed", "fallback", or "+merge" suffixed
}

// BaselineFiles is the minimum file set every project ships, independent of
// what any proposal contains.
var BaselineFiles = []string{
	"docker-compose.yml",
	".env.example",
	"README.md",
	"Makefile",
	"scripts/dev.sh",
	"scripts/build.sh",
	"scripts/test.sh",
}

// BaselineEndpoints is the minimum endpoint set every project exposes.
var BaselineEndpoints = []Endpoint{
	{Method: "GET", Path: "/api/health"},
	{Method: "GET", Path: "/docs"},
}

// IsEmpty reports whether the contract is missing files or endpoints.
// A nil contract is empty.
func IsEmpty(c *Contract) bool {
	if c == nil {
		return true
	}
	return len(c.Files) == 0 || len(c.Endpoints) == 0
}

// Merge combines two contracts by set union: files sorted and deduplicated,
// endpoints deduplicated by (METHOD, path), tables deduplicated by name.
// Merge is commutative over content and idempotent: merging the same
// proposal twice yields the same result as merging once. Either argument
// may be nil.
func Merge(base, add *Contract) *Contract {
	out := &Contract{}

	fileSet := make(map[string]struct{})
	endpointSet := make(map[string]Endpoint)
	tableSet := make(map[string]struct{})

	collect := func(c *Contract) {
		if c == nil {
			return
		}
		for _, f := range c.Files {
			if f != "" {
				fileSet[f] = struct{}{}
			}
		}
		for _, e := range c.Endpoints {
			key := endpointKey(e)
			if e.Path != "" {
				endpointSet[key] = Endpoint{Method: normalizeMethod(e.Method), Path: e.Path}
			}
		}
		for _, t := range c.Tables {
			if t.Name != "" {
				tableSet[t.Name] = struct{}{}
			}
		}
	}
	collect(base)
	collect(add)

	out.Files = sortedKeys(fileSet)

	endpointKeys := make([]string, 0, len(endpointSet))
	for k := range endpointSet {
		endpointKeys = append(endpointKeys, k)
	}
	sort.Strings(endpointKeys)
	for _, k := range endpointKeys {
		out.Endpoints = append(out.Endpoints, endpointSet[k])
	}

	for _, name := range sortedKeys(tableSet) {
		out.Tables = append(out.Tables, Table{Name: name})
	}

	out.Source = mergeSource(base, add)
	return out
}

// WithBaseline returns a copy of c with the fixed baseline files and
// endpoints injected. The result always satisfies the baseline invariant,
// even when c omits every baseline item.
func WithBaseline(c *Contract) *Contract {
	baseline := &Contract{
		Files:     append([]string(nil), BaselineFiles...),
		Endpoints: append([]Endpoint(nil), BaselineEndpoints...),
	}
	merged := Merge(c, baseline)
	if c != nil && c.Source != "" {
		merged.Source = c.Source
	}
	return merged
}

// MissingBaseline returns the baseline items absent from the contract,
// formatted as "file:<path>" and "endpoint:<METHOD> <path>".
func MissingBaseline(c *Contract) []string {
	var missing []string
	if c == nil {
		c = &Contract{}
	}
	files := make(map[string]struct{}, len(c.Files))
	for _, f := range c.Files {
		files[f] = struct{}{}
	}
	for _, f := range BaselineFiles {
		if _, ok := files[f]; !ok {
			missing = append(missing, "file:"+f)
		}
	}
	endpoints := make(map[string]struct{}, len(c.Endpoints))
	for _, e := range c.Endpoints {
		endpoints[endpointKey(e)] = struct{}{}
	}
	for _, e := range BaselineEndpoints {
		if _, ok := endpoints[endpointKey(e)]; !ok {
			missing = append(missing, fmt.Sprintf("endpoint:%s %s", normalizeMethod(e.Method), e.Path))
		}
	}
	return missing
}

func endpointKey(e Endpoint) string {
	return normalizeMethod(e.Method) + " " + e.Path
}

func normalizeMethod(m string) string {
	if m == "" {
		return "GET"
	}
	return strings.ToUpper(m)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeSource(base, add *Contract) string {
	src := ""
	if base != nil && base.Source != "" {
		src = base.Source
	} else if add != nil && add.Source != "" {
		src = add.Source
	}
	if src == "" {
		src = "llm"
	}
	if !strings.HasSuffix(src, "+merge") {
		src += "+merge"
	}
	return src
}
