package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/callbench/internal/canon"
	"github.com/roach88/callbench/internal/verdict"
)

func marshalCategories(categories []string) (string, error) {
	if categories == nil {
		categories = []string{}
	}
	data, err := canon.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("marshal categories: %w", err)
	}
	return string(data), nil
}

func marshalFailure(f *verdict.Failure) (sql.NullString, error) {
	if f == nil {
		return sql.NullString{}, nil
	}
	data, err := canon.Marshal(f)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal failure: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalDiagnostics(d verdict.Diagnostics) (string, error) {
	data, err := canon.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal diagnostics: %w", err)
	}
	return string(data), nil
}

func unmarshalCategories(s string) ([]string, error) {
	var categories []string
	if err := json.Unmarshal([]byte(s), &categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	return categories, nil
}

func unmarshalFailure(s sql.NullString) (*verdict.Failure, error) {
	if !s.Valid {
		return nil, nil
	}
	var f verdict.Failure
	if err := decode(s.String, &f); err != nil {
		return nil, fmt.Errorf("unmarshal failure: %w", err)
	}
	return &f, nil
}

func unmarshalDiagnostics(s string) (verdict.Diagnostics, error) {
	var d verdict.Diagnostics
	if err := decode(s, &d); err != nil {
		return verdict.Diagnostics{}, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	return d, nil
}

// decode keeps numbers as json.Number so stored arguments compare exactly.
func decode(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	return dec.Decode(v)
}
