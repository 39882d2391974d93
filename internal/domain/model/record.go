package model

// DataKeyLength is the minimum length of a datacontent key.
const DataKeyLength = 19

// DataRecord is one decoded dynamic-table data point.
type DataRecord struct {
	Domain        string
	Year          string
	VerticalGroup string
	VerticalItem  string
	Horizontal    string
	Derived       string
	Value         any
	RawKey        string
}

// DataQuery selects the dynamic-table data to fetch. SourceDomain, when set,
// replaces Domain in the request.
type DataQuery struct {
	Domain           string
	VarID            string
	VerticalVar      string
	Year             string
	HorizontalVarIDs []string
	VerticalItemIDs  []string
	SourceDomain     string
}

// EffectiveDomain returns the domain the data request is sent to.
func (q DataQuery) EffectiveDomain() string {
	if q.SourceDomain != "" {
		return q.SourceDomain
	}
	return q.Domain
}

// RecordColumns are the column labels of a decoded data table.
var RecordColumns = []string{
	"domain", "year", "vertical_group", "vertical_item", "horizontal", "derived", "value", "raw_key",
}

// RecordsTable lays records out as a table, one row per record, in input order.
func RecordsTable(records []DataRecord) Table {
	t := NewTable(RecordColumns...)
	t.Rows = make([][]any, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, []any{
			r.Domain, r.Year, r.VerticalGroup, r.VerticalItem, r.Horizontal, r.Derived, r.Value, r.RawKey,
		})
	}
	return t
}
