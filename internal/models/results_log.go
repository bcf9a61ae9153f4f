package models

// Columns every results log starts with.
const (
	ColumnEpoch = "epoch"
	ColumnSplit = "split"
)

// ResultsLog accumulates per-epoch results column by column, keeping the
// order in which columns first appeared.
type ResultsLog struct {
	columns []string
	values  map[string][]string
	rows    int
}

// NewResultsLog returns an empty log with the epoch and split columns.
func NewResultsLog() *ResultsLog {
	return &ResultsLog{
		columns: []string{ColumnEpoch, ColumnSplit},
		values: map[string][]string{
			ColumnEpoch: {},
			ColumnSplit: {},
		},
	}
}

// Columns returns the column names in insertion order.
func (l *ResultsLog) Columns() []string {
	out := make([]string, len(l.columns))
	copy(out, l.columns)
	return out
}

// Column returns the values recorded under name.
func (l *ResultsLog) Column(name string) []string {
	return l.values[name]
}

// Len returns the number of rows appended so far.
func (l *ResultsLog) Len() int {
	return l.rows
}

// Append adds a row. Columns missing from row are left empty, and new
// columns are back-filled with empty values for earlier rows.
func (l *ResultsLog) Append(row map[string]string) {
	for _, name := range sortedKeys(row) {
		if _, ok := l.values[name]; !ok {
			l.columns = append(l.columns, name)
			l.values[name] = make([]string, l.rows)
		}
	}
	for _, name := range l.columns {
		l.values[name] = append(l.values[name], row[name])
	}
	l.rows++
}

// Rows returns the log as a header followed by one record per row.
func (l *ResultsLog) Rows() [][]string {
	records := make([][]string, 0, l.rows+1)
	records = append(records, l.Columns())
	for i := 0; i < l.rows; i++ {
		record := make([]string, len(l.columns))
		for j, name := range l.columns {
			record[j] = l.values[name][i]
		}
		records = append(records, record)
	}
	return records
}
