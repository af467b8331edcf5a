package sources

import "io"

// SliceReader serves rows that were materialised up front, such as the
// result of an inventory API call
type SliceReader struct {
	columns []string
	rows    []Row
	pos     int
}

// NewSliceReader returns a Reader over rows with the given column set
func NewSliceReader(columns []string, rows []Row) *SliceReader {
	return &SliceReader{columns: columns, rows: rows}
}

func (s *SliceReader) Columns() []string {
	return s.columns
}

func (s *SliceReader) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *SliceReader) Close() error {
	s.pos = len(s.rows)
	return nil
}
