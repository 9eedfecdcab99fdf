package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// tagRe matches {{name}}, {{#if name}} and {{/if}}. Anything else between
// braces is ordinary text.
var tagRe = regexp.MustCompile(`\{\{(?:#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*|(/if)|([a-zA-Z_][a-zA-Z0-9_]*))\}\}`)

// Vars is a map of variable names to values for template rendering.
type Vars map[string]string

// Render expands tmpl in one pass.
//
//	{{name}}              replaced by vars[name]; an error if name is missing
//	{{#if name}}...{{/if}} kept only when vars[name] is non-empty; blocks nest
//
// Variables inside a dropped block are not required. Substituted values are
// never scanned for tags.
func Render(tmpl string, vars Vars) (string, error) {
	var (
		b       strings.Builder
		missing []string
		// open holds one entry per enclosing block: whether its body is emitted.
		open []bool
		pos  int
	)
	emitting := func() bool {
		return len(open) == 0 || open[len(open)-1]
	}

	for _, m := range tagRe.FindAllStringSubmatchIndex(tmpl, -1) {
		if emitting() {
			b.WriteString(tmpl[pos:m[0]])
		}
		pos = m[1]

		switch {
		case m[2] >= 0: // {{#if name}}
			name := tmpl[m[2]:m[3]]
			open = append(open, emitting() && vars[name] != "")
		case m[4] >= 0: // {{/if}}
			if len(open) == 0 {
				return "", fmt.Errorf("dangling {{/if}} at offset %d", m[0])
			}
			open = open[:len(open)-1]
		default: // {{name}}
			if !emitting() {
				continue
			}
			name := tmpl[m[6]:m[7]]
			val, ok := vars[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			b.WriteString(val)
		}
	}
	if len(open) > 0 {
		return "", fmt.Errorf("%d unclosed {{#if}} block(s)", len(open))
	}
	b.WriteString(tmpl[pos:])

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return b.String(), nil
}

// Builtin returns the built-in template called name.
func Builtin(name string) (string, bool) {
	t, ok := builtinTemplates[name]
	return t, ok
}

// Names lists the built-in template names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the template called name, preferring a file of that name in
// overrideDir over the built-in copy.
func Load(name, overrideDir string) (string, error) {
	if overrideDir != "" {
		path := filepath.Join(overrideDir, name)
		absPath, err := filepath.Abs(path)
		if err == nil {
			absDir, err2 := filepath.Abs(overrideDir)
			if err2 == nil && !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
				return "", fmt.Errorf("template name %q escapes %s", name, overrideDir)
			}
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read template %s: %w", path, err)
		}
	}
	if t, ok := builtinTemplates[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("template %q not found", name)
}

// Install writes the built-in templates into dir so they can be edited.
// Existing files are kept unless force is set. It returns the paths written.
func Install(dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir: %w", err)
	}

	var written []string
	for _, name := range Names() {
		path := filepath.Join(dir, name)
		if !force {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}
		if err := os.WriteFile(path, []byte(builtinTemplates[name]), 0o644); err != nil {
			return written, fmt.Errorf("write template %q: %w", name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
