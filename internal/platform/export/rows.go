// Package export prepares row sets for tabular export and writes them as
// spreadsheet files.
package export

// Row is one record of a row set.
type Row = map[string]any

// MapRows renames the fields of every row through rename, leaving unmapped
// fields and all values untouched. Row order is preserved. When a renamed
// field lands on the name of an unmapped field, the renamed value wins.
func MapRows(rows []Row, rename map[string]string) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		m := make(Row, len(r))
		for k, v := range r {
			if _, mapped := rename[k]; !mapped {
				m[k] = v
			}
		}
		for k, v := range r {
			if to, mapped := rename[k]; mapped {
				m[to] = v
			}
		}
		out = append(out, m)
	}
	return out
}
