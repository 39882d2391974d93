package bps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// envelope is the common shape of every WebAPI response.
type envelope struct {
	Status       string          `json:"status"`
	Availability string          `json:"data-availability"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	DataContent  json.RawMessage `json:"datacontent"`
}

// pageInfo is the first element of a paginated "data" list.
type pageInfo struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// flexString accepts both JSON strings and numbers; the WebAPI is inconsistent
// about identifier types.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := gojson.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	num := string(b)
	if _, err := strconv.ParseFloat(num, 64); err != nil {
		return fmt.Errorf("identifier %s is neither string nor number", num)
	}
	*f = flexString(num)
	return nil
}

type domainJSON struct {
	ID   flexString `json:"domain_id"`
	Name string     `json:"domain_name"`
	URL  string     `json:"domain_url"`
}

type staticTableJSON struct {
	TableID  flexString `json:"table_id"`
	Title    string     `json:"title"`
	SubjID   flexString `json:"subj_id"`
	Subj     string     `json:"subj"`
	UpdtDate string     `json:"updt_date"`
}

type staticViewJSON struct {
	TableID  flexString `json:"table_id"`
	Title    string     `json:"title"`
	Table    *string    `json:"table"`
	UpdtDate string     `json:"updt_date"`
}

type dynamicTableJSON struct {
	VarID   flexString `json:"var_id"`
	Title   string     `json:"title"`
	SubID   flexString `json:"sub_id"`
	SubName string     `json:"sub_name"`
	Unit    string     `json:"unit"`
}
