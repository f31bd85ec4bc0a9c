package google

import (
	"bisky/internal/core"
	"bisky/internal/storage/csvfile"
)

// Values lays the table out the way the CSV store does: header row, then
// one row per entry with amounts fixed to two decimals.
func Values(rows []core.Entry) [][]any {
	out := make([][]any, 0, len(rows)+1)
	header := make([]any, len(csvfile.Header))
	for i, h := range csvfile.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, e := range rows {
		rec := csvfile.Record(e)
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		out = append(out, row)
	}
	return out
}
