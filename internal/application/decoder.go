package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// DecodeKey splits a datacontent key into its fixed-width segments:
// domain [0:4), year [4:6), vertical group [6:8), vertical item [8:13),
// horizontal [13:16) and derived [16:19). Characters past 19 are ignored.
func DecodeKey(key string) (model.DataRecord, error) {
	if len(key) < model.DataKeyLength {
		return model.DataRecord{}, model.UnexpectedShape(
			fmt.Sprintf("datacontent key %q shorter than %d characters", key, model.DataKeyLength), nil)
	}
	return model.DataRecord{
		Domain:        key[0:4],
		Year:          key[4:6],
		VerticalGroup: key[6:8],
		VerticalItem:  key[8:13],
		Horizontal:    key[13:16],
		Derived:       key[16:19],
		RawKey:        key,
	}, nil
}

// DecodeDataContent decodes a datacontent object into records, one per key,
// in the order the keys appear in the payload. A payload that is missing,
// null or not an object fails with DataUnavailable.
func DecodeDataContent(raw json.RawMessage) ([]model.DataRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, model.NewError(model.KindDataUnavailable, "response has no datacontent object", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, model.UnexpectedShape("malformed datacontent", trimmed)
	}

	var records []model.DataRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, model.UnexpectedShape("malformed datacontent", trimmed)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, model.UnexpectedShape("malformed datacontent key", trimmed)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, model.UnexpectedShape("malformed datacontent value", trimmed)
		}

		rec, err := DecodeKey(key)
		if err != nil {
			return nil, err
		}
		rec.Value = cellFromJSON(value)
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, model.UnexpectedShape("malformed datacontent", trimmed)
	}

	if len(records) == 0 {
		return nil, model.NewError(model.KindDataUnavailable, "dynamic table data is empty", nil)
	}
	return records, nil
}

// cellFromJSON converts a decoded JSON value into a table cell: numbers become
// float64, strings stay strings, null stays nil.
func cellFromJSON(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case json.Number:
		if f, err := strconv.ParseFloat(val.String(), 64); err == nil {
			return f
		}
		return val.String()
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// dataParams builds the extra lookup parameters of a data request. Optional
// filters are only sent when non-empty.
func dataParams(q model.DataQuery) map[string]string {
	params := map[string]string{"th": q.Year}
	if q.VerticalVar != "" {
		params["vervar"] = q.VerticalVar
	}
	if len(q.HorizontalVarIDs) > 0 {
		params["turvar"] = strings.Join(q.HorizontalVarIDs, ";")
	}
	if len(q.VerticalItemIDs) > 0 {
		params["turth"] = strings.Join(q.VerticalItemIDs, ";")
	}
	return params
}
