// Package suite loads benchmark test cases from a directory of JSON (or YAML)
// files. Each file holds an array of cases; a case is identified by
// "<file name>-<index>".
package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/callbench/internal/canon"
	"github.com/roach88/callbench/internal/script"
)

// Function is a tool declared to the model.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Case is one loaded, validated test case.
type Case struct {
	ID    string `json:"id"`
	File  string `json:"file"`
	Index int    `json:"index"`

	Description       string     `json:"description,omitempty"`
	Categories        []string   `json:"categories"`
	SystemPrompt      string     `json:"system_prompt,omitempty"`
	Prompt            string     `json:"prompt"`
	Functions         []Function `json:"available_functions"`
	FinalAnswerShould string     `json:"final_answer_should,omitempty"`

	// Script is the validated expected-call script.
	Script *script.Script `json:"-"`

	// ExpectedRaw is expected_function_calls as written in the file.
	ExpectedRaw json.RawMessage `json:"expected_function_calls"`

	// Digest identifies the case content independent of formatting.
	Digest string `json:"digest"`
}

// LoadError is a test case, or a whole file, that failed to load.
// The runner reports it as a failed ValidationError verdict.
type LoadError struct {
	ID   string
	File string

	// Index is -1 when the whole file is unreadable.
	Index int

	// Categories are taken from the raw case when they could be read.
	Categories []string

	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Suite is the loaded content of a suite directory.
type Suite struct {
	Dir    string
	Cases  []*Case
	Errors []*LoadError
}

// Len returns the number of entries, loaded or not.
func (s *Suite) Len() int {
	return len(s.Cases) + len(s.Errors)
}

var extensions = []string{".json", ".yaml", ".yml"}

// LoadDir loads every *.json, *.yaml and *.yml file in dir, in name order.
// Subdirectories are not searched. Failing cases are collected in
// Suite.Errors; only an unreadable directory is an error.
func LoadDir(dir string) (*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read suite directory: %w", err)
	}

	v, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}

	s := &Suite{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			s.Errors = append(s.Errors, fileError(entry.Name(), err))
			continue
		}

		cases, loadErrs := parseFile(v, entry.Name(), data)
		s.Cases = append(s.Cases, cases...)
		s.Errors = append(s.Errors, loadErrs...)
	}

	return s, nil
}

// ParseFile parses the content of one suite file named name.
func ParseFile(name string, data []byte) ([]*Case, []*LoadError, error) {
	v, err := newSchemaValidator()
	if err != nil {
		return nil, nil, err
	}
	cases, loadErrs := parseFile(v, name, data)
	return cases, loadErrs, nil
}

func parseFile(v *schemaValidator, name string, data []byte) ([]*Case, []*LoadError) {
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".yaml" || ext == ".yml" {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, []*LoadError{fileError(name, err)}
		}
		data = converted
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, []*LoadError{fileError(name, fmt.Errorf("file must be an array of test cases: %w", err))}
	}

	var (
		cases    []*Case
		loadErrs []*LoadError
	)
	for i, raw := range raws {
		c, err := parseCase(v, name, i, raw)
		if err != nil {
			loadErrs = append(loadErrs, &LoadError{
				ID:         caseID(name, i),
				File:       name,
				Index:      i,
				Categories: peekCategories(raw),
				Err:        err,
			})
			continue
		}
		cases = append(cases, c)
	}
	return cases, loadErrs
}

type rawCase struct {
	Description       string          `json:"description"`
	Categories        []string        `json:"categories"`
	SystemPrompt      string          `json:"system_prompt"`
	Prompt            string          `json:"prompt"`
	Functions         []Function      `json:"available_functions"`
	Expected          json.RawMessage `json:"expected_function_calls"`
	FinalAnswerShould string          `json:"final_answer_should"`
}

func parseCase(v *schemaValidator, name string, index int, raw json.RawMessage) (*Case, error) {
	if err := v.validate(fmt.Sprintf("%s[%d]", name, index), raw); err != nil {
		return nil, err
	}

	var rc rawCase
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rc); err != nil {
		return nil, fmt.Errorf("decode test case: %w", err)
	}

	if len(rc.Categories) == 0 {
		return nil, fmt.Errorf("categories must be non-empty")
	}

	sc, err := script.Parse(rc.Expected)
	if err != nil {
		return nil, err
	}

	digest, err := caseDigest(raw)
	if err != nil {
		return nil, err
	}

	return &Case{
		ID:                caseID(name, index),
		File:              name,
		Index:             index,
		Description:       rc.Description,
		Categories:        rc.Categories,
		SystemPrompt:      rc.SystemPrompt,
		Prompt:            rc.Prompt,
		Functions:         rc.Functions,
		FinalAnswerShould: rc.FinalAnswerShould,
		Script:            sc,
		ExpectedRaw:       rc.Expected,
		Digest:            digest,
	}, nil
}

func caseID(file string, index int) string {
	return fmt.Sprintf("%s-%d", file, index)
}

func fileError(name string, err error) *LoadError {
	return &LoadError{ID: name, File: name, Index: -1, Err: err}
}

func caseDigest(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("digest test case: %w", err)
	}
	return canon.Digest(canon.DomainTestCase, generic)
}

// peekCategories reads categories from a case that failed validation,
// so the failure still counts toward its categories.
func peekCategories(raw json.RawMessage) []string {
	var probe struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	return probe.Categories
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert YAML to JSON: %w", err)
	}
	return out, nil
}

// Filter selects cases. Zero fields match everything.
type Filter struct {
	// IDPattern is a path.Match glob over test ids, e.g. "weather.json-*".
	IDPattern string

	// Categories keeps cases in any of the listed categories.
	Categories []string
}

// Apply returns a suite holding only the matching cases and load errors.
func (f Filter) Apply(s *Suite) (*Suite, error) {
	if f.IDPattern != "" {
		if _, err := path.Match(f.IDPattern, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", f.IDPattern, err)
		}
	}

	out := &Suite{Dir: s.Dir}
	for _, c := range s.Cases {
		if f.matches(c.ID, c.Categories) {
			out.Cases = append(out.Cases, c)
		}
	}
	for _, e := range s.Errors {
		if f.matches(e.ID, e.Categories) {
			out.Errors = append(out.Errors, e)
		}
	}
	return out, nil
}

func (f Filter) matches(id string, categories []string) bool {
	if f.IDPattern != "" {
		if ok, _ := path.Match(f.IDPattern, id); !ok {
			return false
		}
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range categories {
		if slices.Contains(f.Categories, c) {
			return true
		}
	}
	return false
}
