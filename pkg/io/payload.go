package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pivotview/pkg/errors"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// Payload is one backend response.
type Payload struct {
	RowNodes    []pivot.RawNode `json:"row_nodes"`
	ColumnNodes []pivot.RawNode `json:"column_nodes,omitempty"`
	Rows        []pivot.Record  `json:"rows,omitempty"`
	DataKeys    []string        `json:"data_keys,omitempty"`
}

// Input converts the payload into engine input.
func (p *Payload) Input() pivot.Input {
	return pivot.Input{
		RowNodes:    p.RowNodes,
		ColumnNodes: p.ColumnNodes,
		Rows:        p.Rows,
		DataKeys:    p.DataKeys,
	}
}

// UnmarshalJSON decodes a payload and records row keys in document order.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw struct {
		RowNodes    []pivot.RawNode `json:"row_nodes"`
		ColumnNodes []pivot.RawNode `json:"column_nodes"`
		Rows        json.RawMessage `json:"rows"`
		DataKeys    []string        `json:"data_keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rows, keys, err := decodeRows(raw.Rows)
	if err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	*p = Payload{
		RowNodes:    raw.RowNodes,
		ColumnNodes: raw.ColumnNodes,
		Rows:        rows,
		DataKeys:    raw.DataKeys,
	}
	if len(p.DataKeys) == 0 {
		p.DataKeys = keys
	}
	return nil
}

// decodeRows walks the rows array token by token so that object keys can be
// collected in first-seen order.
func decodeRows(data json.RawMessage) ([]pivot.Record, []string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '['); err != nil {
		return nil, nil, err
	}

	var (
		rows []pivot.Record
		keys []string
		seen = map[string]bool{}
	)
	for i := 0; dec.More(); i++ {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		rec := pivot.Record{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", i, err)
			}
			key, _ := tok.(string)
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, nil, fmt.Errorf("row %d field %q: %w", i, key, err)
			}
			rec[key] = v
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	return rows, keys, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// ReadPayload decodes a payload from r. ReadPayload does not close r.
func ReadPayload(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode payload")
	}
	return &p, nil
}

// ImportPayload reads the payload file at path.
func ImportPayload(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPayload(f)
}

// WritePayload encodes p as indented JSON. Row values are written with
// their keys sorted, so a re-read payload relies on DataKeys for order.
func WritePayload(p *Payload, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportPayload writes p to a JSON file at path.
func ExportPayload(p *Payload, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WritePayload(p, f)
}
