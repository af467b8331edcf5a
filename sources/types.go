package sources

// Row is one record of a tabular source: column values keyed by header name
// Columns keeps the header order of the source that produced the row
type Row struct {
	Line    int               // 1-based record position in the source, for error reporting
	Columns []string          // Column names present in this row, in source order
	Values  map[string]string // Column name to value
}

// NewRow builds a Row from parallel header and field slices. Fields beyond
// the header are ignored; header names without a field are left out
func NewRow(line int, header, fields []string) Row {
	n := min(len(header), len(fields))
	row := Row{
		Line:    line,
		Columns: make([]string, 0, n),
		Values:  make(map[string]string, n),
	}
	for i := 0; i < n; i++ {
		row.Columns = append(row.Columns, header[i])
		row.Values[header[i]] = fields[i]
	}
	return row
}

// Get returns the value of a column and whether the row carries it
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}
