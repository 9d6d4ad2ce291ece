package parser

import (
	"fmt"
	"maps"
	"slices"
)

// fieldKind is the coarse type check applied to a YAML-decoded parameter
// value before execution begins.
type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindNumber
	kindStringOrArray // a bare string, or an array of path segments
	kindStringOrStringArray
	kindAny
)

type fieldSpec struct {
	required bool
	kind     fieldKind
}

type opSpec struct {
	name   string
	fields map[string]fieldSpec
	// requireOneOf lists field groups where at least one member is required.
	requireOneOf [][]string
}

// opSpecs is the parameter schema table for the recognized operation set.
// Unknown operation names, unknown parameter keys, missing required keys,
// and type mismatches are all parse-time ParseErrors.
var opSpecs = map[string]opSpec{
	"import": {
		name: "import",
		fields: map[string]fieldSpec{
			"file":      {required: true, kind: kindString},
			"block":     {kind: kindStringOrArray},
			"mode":      {kind: kindString},
			"to":        {kind: kindStringOrArray},
			"run-once":  {kind: kindBool},
		},
	},
	"shell": {
		name: "shell",
		fields: map[string]fieldSpec{
			"prompt":     {required: true, kind: kindString},
			"use-header": {kind: kindString},
			"mode":       {kind: kindString},
			"to":         {kind: kindStringOrArray},
			"run-once":   {kind: kindBool},
		},
	},
	"llm": {
		name: "llm",
		fields: map[string]fieldSpec{
			"prompt":           {kind: kindString},
			"block":            {kind: kindStringOrArray},
			"media":            {kind: kindAny},
			"provider":         {kind: kindString},
			"model":            {kind: kindString},
			"temperature":      {kind: kindNumber},
			"stop-sequences":   {kind: kindAny},
			"tools":            {kind: kindStringOrStringArray},
			"tools-turns-max":  {kind: kindNumber},
			"save-to-file":     {kind: kindString},
			"use-header":       {kind: kindString},
			"mode":             {kind: kindString},
			"to":               {kind: kindStringOrArray},
			"run-once":         {kind: kindBool},
		},
		requireOneOf: [][]string{{"prompt", "block"}},
	},
	"run": {
		name: "run",
		fields: map[string]fieldSpec{
			"file":       {required: true, kind: kindString},
			"prompt":     {kind: kindString},
			"block":      {kind: kindStringOrArray},
			"use-header": {kind: kindString},
			"mode":       {kind: kindString},
			"to":         {kind: kindStringOrArray},
			"run-once":   {kind: kindBool},
		},
	},
	"return": {
		name: "return",
		fields: map[string]fieldSpec{
			"prompt":     {kind: kindString},
			"block":      {kind: kindStringOrArray},
			"use-header": {kind: kindString},
		},
		requireOneOf: [][]string{{"prompt", "block"}},
	},
	"goto": {
		name: "goto",
		fields: map[string]fieldSpec{
			"block":    {required: true, kind: kindString},
			"run-once": {kind: kindBool},
		},
	},
}

// validateParams checks raw (already YAML-decoded) params against op's
// schema, returning a descriptive error for the first violation found.
// Keys are checked in a stable order so error messages are reproducible.
func validateParams(op string, raw map[string]any) error {
	spec, ok := opSpecs[op]
	if !ok {
		return fmt.Errorf("unknown operation %q", op)
	}

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		if _, known := spec.fields[key]; !known {
			return fmt.Errorf("operation %q: unknown parameter %q", op, key)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(spec.fields)) {
		fs := spec.fields[key]
		val, present := raw[key]
		if !present {
			if fs.required {
				return fmt.Errorf("operation %q: missing required parameter %q", op, key)
			}
			continue
		}
		if err := checkKind(op, key, fs.kind, val); err != nil {
			return err
		}
	}

	for _, group := range spec.requireOneOf {
		if !anyPresent(raw, group) {
			return fmt.Errorf("operation %q: at least one of %v is required", op, group)
		}
	}

	return nil
}

func anyPresent(raw map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

func checkKind(op, key string, kind fieldKind, val any) error {
	switch kind {
	case kindString:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("operation %q: parameter %q must be a string", op, key)
		}
	case kindBool:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("operation %q: parameter %q must be a boolean", op, key)
		}
	case kindNumber:
		switch val.(type) {
		case int, int64, float64, float32:
		default:
			return fmt.Errorf("operation %q: parameter %q must be a number", op, key)
		}
	case kindStringOrArray:
		switch val.(type) {
		case string, []any:
		default:
			return fmt.Errorf("operation %q: parameter %q must be a path string or array", op, key)
		}
	case kindStringOrStringArray:
		switch v := val.(type) {
		case string:
		case []any:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("operation %q: parameter %q array elements must be strings", op, key)
				}
			}
		default:
			return fmt.Errorf("operation %q: parameter %q must be a string or array of strings", op, key)
		}
	case kindAny:
		// no constraint
	}
	return nil
}

// recognizedOps returns the set of operation names the parser accepts.
func recognizedOps() map[string]bool {
	out := make(map[string]bool, len(opSpecs))
	for name := range opSpecs {
		out[name] = true
	}
	return out
}
