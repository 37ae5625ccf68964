package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotSequence is returned when a persisted payload is not a JSON array.
var ErrNotSequence = errors.New("domain: persisted payload is not a record sequence")

// DecodeReport describes how many elements of a payload were usable.
type DecodeReport struct {
	Total   int
	Skipped int // elements that were not objects
	Reset   int // mistyped fields left at their zero value
}

// EncodeRecords serialises records as a JSON array. An empty or nil
// collection encodes as [].
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// DecodeRecords parses a persisted payload. The payload must be a JSON array;
// anything else yields ErrNotSequence. Elements are decoded one field at a
// time: missing or mistyped fields keep their zero value, and only elements
// that are not objects are skipped. Both are counted in the report.
func DecodeRecords(payload []byte) ([]Record, DecodeReport, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, DecodeReport{}, ErrNotSequence
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, DecodeReport{}, fmt.Errorf("%w: %v", ErrNotSequence, err)
	}
	report := DecodeReport{Total: len(raws)}
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		rec, reset, ok := decodeRecord(raw)
		if !ok {
			report.Skipped++
			continue
		}
		report.Reset += reset
		out = append(out, rec)
	}
	return out, report, nil
}

func decodeRecord(raw json.RawMessage) (rec Record, reset int, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Record{}, 0, false
	}
	targets := map[string]any{
		"id":       &rec.ID,
		"category": &rec.Category,
		"activity": &rec.Activity,
		"amount":   &rec.Amount,
		"unit":     &rec.Unit,
		"date":     &rec.Date,
		"notes":    &rec.Notes,
		"co2Kg":    &rec.CO2Kg,
	}
	for name, dst := range targets {
		v, present := fields[name]
		if !present {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			reset++
		}
	}
	return rec, reset, true
}
