package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/ecodispatch/core/results"
)

// Format selects the rendering of a results table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Lossless renders floats with the fewest digits that round-trip exactly.
const Lossless = -1

// Write renders res to w in the given format.
func Write(w io.Writer, format Format, res *results.Results, precision int) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, res, precision)
	case FormatJSON:
		return WriteJSON(w, res)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes the dispatch table to w in JSON format.
func WriteJSON(w io.Writer, res *results.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes the dispatch table to w with a header row. Every value uses
// the same formatting: Lossless, or precision digits after the point.
func WriteCSV(w io.Writer, res *results.Results, precision int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Header()); err != nil {
		return err
	}
	for _, row := range res.Rows {
		rec := make([]string, 0, len(row.Values)+1)
		rec = append(rec, strconv.Itoa(row.Step))
		for _, v := range row.Values {
			rec = append(rec, formatFloat(v, precision))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64, precision int) string {
	if precision < 0 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}
