// Package report tallies verdicts into passed/total counts, overall and per
// category.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/callbench/internal/verdict"
)

// Tally is a passed/total pair.
type Tally struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

func (t *Tally) add(pass bool) {
	t.Total++
	if pass {
		t.Passed++
	} else {
		t.Failed++
	}
}

// String renders "passed/total".
func (t Tally) String() string {
	return fmt.Sprintf("%d/%d", t.Passed, t.Total)
}

// CategoryTally is the tally of one category.
type CategoryTally struct {
	Category string `json:"category"`
	Tally
}

// Summary is the tally of a set of verdicts.
type Summary struct {
	Tally

	// Categories is sorted by name. A verdict counts once toward each of
	// its categories.
	Categories []CategoryTally `json:"categories"`

	// Kinds counts failures by kind.
	Kinds map[verdict.Kind]int `json:"kinds,omitempty"`
}

// Summarize tallies verdicts.
func Summarize(verdicts []verdict.Verdict) Summary {
	s := Summary{Categories: []CategoryTally{}}
	byCategory := make(map[string]*Tally)

	for _, v := range verdicts {
		s.add(v.Pass)
		if !v.Pass {
			if s.Kinds == nil {
				s.Kinds = make(map[verdict.Kind]int)
			}
			s.Kinds[v.Kind()]++
		}

		seen := make(map[string]bool, len(v.Categories))
		for _, c := range v.Categories {
			if seen[c] {
				continue
			}
			seen[c] = true
			t, ok := byCategory[c]
			if !ok {
				t = &Tally{}
				byCategory[c] = t
			}
			t.add(v.Pass)
		}
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Categories = append(s.Categories, CategoryTally{Category: name, Tally: *byCategory[name]})
	}
	return s
}

// WriteText renders the summary as "total: p/t" followed by one
// "<category>: p/t" line per category.
func (s Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "total: %s\n", s.Tally); err != nil {
		return err
	}
	for _, c := range s.Categories {
		if _, err := fmt.Fprintf(w, "%s: %s\n", c.Category, c.Tally); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON renders the summary as indented JSON.
func (s Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
