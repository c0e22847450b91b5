package writer

import (
	"bytes"
	"encoding/json"
	"fmt"

	cbigquery "cloud.google.com/go/bigquery"
)

// JSONColumn renders v for a BigQuery JSON column. Nil or blank input is NULL.
func JSONColumn(v any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return t, nil
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("encode json column: %w", err)
		}
		raw = b
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
