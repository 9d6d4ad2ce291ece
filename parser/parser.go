// Package parser turns a Markdown byte stream into a tree.Tree. It recognizes
// two extensions over plain Markdown: a trailing `{id=slug}` marker on
// headings, and YAML-bodied operation blocks opened by a bare `@name` line.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/tree"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	openerRe  = regexp.MustCompile(`^@([a-z][a-z0-9_-]*)\s*$`)
	idMarkRe  = regexp.MustCompile(`\{id=([A-Za-z][A-Za-z0-9_-]*)\}\s*$`)
	slugBadRe = regexp.MustCompile(`[^a-z0-9]+`)
	idValidRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// frame tracks the sibling-id bookkeeping for one heading's region so
// collisions are resolved by appending -2, -3, ... in document order,
// scoped to the nearest enclosing heading rather than the whole document.
type frame struct {
	level int
	ids   map[string]int
}

// Parse reads src and returns a populated tree, or a *ferrors.Error of kind
// ParseError for any malformed input.
func Parse(src []byte) (*tree.Tree, error) {
	lines := strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	tr := tree.New()

	stack := []frame{{level: 0, ids: map[string]int{}}}
	currentLevel := 0

	var pending []string

	flushContent := func(endLine int) error {
		if len(pending) == 0 {
			return nil
		}
		// Leading and trailing blank lines are the separators after whatever
		// opened this run and before whatever closed it (a heading, an
		// operation, or EOF), not part of the content.
		end := len(pending)
		for end > 0 && pending[end-1] == "" {
			end--
		}
		start := 0
		for start < end && pending[start] == "" {
			start++
		}
		lines := pending[start:end]
		pending = nil
		if len(lines) == 0 {
			return nil
		}
		text := strings.Join(lines, "\n")
		if strings.TrimSpace(text) == "" {
			return nil
		}
		n := &tree.Node{
			Kind:    tree.KindContent,
			Level:   currentLevel,
			Text:    text,
			Role:    tree.RoleUser,
			Enabled: true,
		}
		return tr.AppendSingle(n)
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		if m := headingRe.FindStringSubmatch(line); m != nil {
			if err := flushContent(i); err != nil {
				return nil, err
			}
			level := len(m[1])
			rest := m[2]

			explicitID := ""
			if loc := idMarkRe.FindStringSubmatchIndex(rest); loc != nil {
				explicitID = rest[loc[2]:loc[3]]
				rest = strings.TrimSpace(rest[:loc[0]])
				if !idValidRe.MatchString(explicitID) {
					return nil, ferrors.New(ferrors.KindParseError, fmt.Sprintf("line %d", i+1),
						fmt.Sprintf("invalid id marker %q", explicitID))
				}
			}

			base := explicitID
			if base == "" {
				base = deriveSlug(rest)
				if base == "" {
					base = "section"
				}
			}

			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := &stack[len(stack)-1]
			id := base
			if n := parent.ids[base]; n > 0 {
				id = fmt.Sprintf("%s-%d", base, n+1)
			}
			parent.ids[base]++
			stack = append(stack, frame{level: level, ids: map[string]int{}})

			currentLevel = level
			node := &tree.Node{
				Kind:    tree.KindHeading,
				Level:   level,
				ID:      id,
				Text:    line,
				Role:    tree.RoleUser,
				Enabled: true,
			}
			if err := tr.AppendSingle(node); err != nil {
				return nil, err
			}
			i++
			continue
		}

		if m := openerRe.FindStringSubmatch(line); m != nil {
			if err := flushContent(i); err != nil {
				return nil, err
			}
			opName := m[1]
			bodyStart := i + 1
			j := bodyStart
			for j < len(lines) && strings.TrimSpace(lines[j]) != "" {
				j++
			}
			body := strings.Join(lines[bodyStart:j], "\n")

			if !recognizedOps()[opName] {
				return nil, ferrors.New(ferrors.KindParseError, fmt.Sprintf("line %d", i+1),
					fmt.Sprintf("unknown operation %q", opName))
			}

			var raw map[string]any
			if strings.TrimSpace(body) != "" {
				if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
					return nil, ferrors.New(ferrors.KindParseError, fmt.Sprintf("line %d", bodyStart+1),
						fmt.Sprintf("invalid YAML in @%s body: %v", opName, err))
				}
			}
			if raw == nil {
				raw = map[string]any{}
			}
			raw = normalizeYAMLMap(raw)

			if err := validateParams(opName, raw); err != nil {
				return nil, ferrors.New(ferrors.KindParseError, fmt.Sprintf("line %d", i+1), err.Error())
			}

			key := tr.NewKey()
			node := &tree.Node{
				Key:     key,
				Kind:    tree.KindOperation,
				Level:   currentLevel,
				ID:      "op-" + key,
				Text:    strings.Join(lines[i:j], "\n"),
				OpName:  opName,
				Params:  raw,
				Role:    tree.RoleUser,
				Enabled: true,
			}
			if err := tr.AppendSingle(node); err != nil {
				return nil, err
			}

			i = j + 1
			continue
		}

		pending = append(pending, line)
		i++
	}
	if err := flushContent(len(lines)); err != nil {
		return nil, err
	}

	return tr, nil
}

// deriveSlug lowercases text, trims it, and collapses runs of non-alphanumeric
// characters into a single hyphen, matching the fallback heading-id rule.
func deriveSlug(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	slug := slugBadRe.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// normalizeYAMLMap converts yaml.v3's map[string]interface{} (which may use
// nested map[string]interface{} already, but interface{} keys in edge cases)
// into plain map[string]any recursively so downstream code only deals with
// string-keyed maps and native Go scalar/slice types.
func normalizeYAMLMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeYAMLMap(val)
	case map[any]any:
		conv := make(map[string]any, len(val))
		for k, vv := range val {
			conv[fmt.Sprintf("%v", k)] = normalizeYAMLValue(vv)
		}
		return conv
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAMLValue(item)
		}
		return out
	default:
		return v
	}
}
