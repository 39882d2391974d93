package bps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stadatax/internal/adapter/driven/bps"
)

func TestParseHTMLTable_MultiLevelHeader(t *testing.T) {
	raw := `<table>
<thead>
<tr><th rowspan="2">Kabupaten</th><th colspan="2">Penduduk</th></tr>
<tr><th>2022</th><th>2023</th></tr>
</thead>
<tbody>
<tr><td>Bogor</td><td>5 427</td><td>5 556</td></tr>
<tr><td>Bekasi</td><td></td><td>n/a</td></tr>
</tbody>
</table>`

	table, err := bps.ParseHTMLTable(raw)

	require.NoError(t, err)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, []string{"Kabupaten", "Kabupaten"}, table.Columns[0].Levels)
	assert.Equal(t, []string{"Penduduk", "2022"}, table.Columns[1].Levels)
	assert.Equal(t, []string{"Penduduk", "2023"}, table.Columns[2].Levels)
	assert.Equal(t, 2, table.HeaderDepth())

	require.Len(t, table.Rows, 2)
	assert.Equal(t, []any{"Bogor", 5427.0, 5556.0}, table.Rows[0])
	assert.Equal(t, []any{"Bekasi", nil, "n/a"}, table.Rows[1])
}

func TestParseHTMLTable_LeadingHeaderRowsWithoutThead(t *testing.T) {
	raw := `<table><tr><th>A</th><th>B</th></tr><tr><td>x</td><td>1</td></tr></table>`

	table, err := bps.ParseHTMLTable(raw)

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, table.Labels())
	assert.Equal(t, [][]any{{"x", 1.0}}, table.Rows)
}

func TestParseHTMLTable_RowspanInBody(t *testing.T) {
	raw := `<table><tr><th>G</th><th>N</th></tr>
<tr><td rowspan="2">Jawa</td><td>1</td></tr>
<tr><td>2</td></tr></table>`

	table, err := bps.ParseHTMLTable(raw)

	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Jawa", 1.0}, {"Jawa", 2.0}}, table.Rows)
}

func TestParseHTMLTable_ClampsOversizedSpans(t *testing.T) {
	raw := `<table><tr><th colspan="100000000">Wide</th></tr>
<tr><td rowspan="99999999">x</td><td>1</td></tr></table>`

	table, err := bps.ParseHTMLTable(raw)

	require.NoError(t, err)
	assert.Len(t, table.Columns, 1000)
	require.Len(t, table.Rows, 1)
	assert.Len(t, table.Rows[0], 1000)
	assert.Equal(t, "x", table.Rows[0][0])
	assert.Equal(t, 1.0, table.Rows[0][1])
}

func TestParseHTMLTable_EntityEncoded(t *testing.T) {
	raw := `&lt;table&gt;&lt;tr&gt;&lt;th&gt;A&lt;/th&gt;&lt;/tr&gt;&lt;tr&gt;&lt;td&gt;v&lt;/td&gt;&lt;/tr&gt;&lt;/table&gt;`

	table, err := bps.ParseHTMLTable(raw)

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, table.Labels())
	assert.Equal(t, [][]any{{"v"}}, table.Rows)
}

func TestParseHTMLTable_NoTable(t *testing.T) {
	_, err := bps.ParseHTMLTable("<p>not a table</p>")
	require.Error(t, err)
}
