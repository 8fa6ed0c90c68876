package compiler

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// IncludeDirective prefixes a line that references a pre-built binary library.
const IncludeDirective = "//#include "

// ResolveDependencies returns the distinct library references declared in file.
// Referenced paths are environment-expanded and never opened.
func ResolveDependencies(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	defer f.Close()

	var refs []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, IncludeDirective) {
			continue
		}
		ref := os.ExpandEnv(strings.TrimSpace(line[len(IncludeDirective):]))
		if ref == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return refs, nil
}

// CollectReferences unions the references of every directly given source. A
// reference named by several files appears once, at its first position. Only the
// set of references is independent of the order of sources, not the list order.
func CollectReferences(sources []string) ([]string, []Diagnostic) {
	var (
		refs  []string
		diags []Diagnostic
	)
	seen := map[string]struct{}{}
	for _, src := range sources {
		deps, err := ResolveDependencies(src)
		if err != nil {
			diags = append(diags, errorf(src, "read", "%v", err))
			continue
		}
		for _, d := range deps {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			refs = append(refs, d)
		}
	}
	return refs, diags
}
