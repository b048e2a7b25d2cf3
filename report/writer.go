package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// Format selects how a report is written.
type Format string

// The supported formats.
const (
	FormatTable Format = "table"
	FormatTree  Format = "tree"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat converts a name into a Format.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(name))
	switch f {
	case FormatTable, FormatTree, FormatCSV, FormatJSON:
		return f, nil
	}

	return "", errors.Errorf(
		"unknown format %q, expecting table, tree, csv or json", name)
}

// Write writes the report in the given format. With top > 0, the table, CSV
// and JSON formats only list the top operations by self time.
func Write(w io.Writer, r Report, format Format, top int) error {
	entries := r.Entries
	if top > 0 {
		entries = r.Slowest(top)
	}

	switch format {
	case FormatTable:
		return WriteTable(w, entries)
	case FormatTree:
		return WriteTree(w, r)
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatJSON:
		return WriteJSON(w, Report{Entries: entries})
	}

	return errors.Errorf("unknown format %q", format)
}

func millis(v int64) string {
	return strconv.FormatInt(v, 10)
}

// WriteTable writes the entries as a table with millisecond columns.
func WriteTable(w io.Writer, entries []Entry) error {
	table := tablewriter.NewWriter(w)
	table.Header("Operation", "Parent", "Depth", "Elapsed (ms)", "Self (ms)")

	for _, e := range entries {
		err := table.Append([]string{
			e.ID,
			e.ParentID,
			strconv.Itoa(e.Depth),
			millis(e.ElapsedMillis()),
			millis(e.SelfTimeMillis()),
		})
		if err != nil {
			return errors.Wrap(err, "appending row")
		}
	}

	return errors.Wrap(table.Render(), "rendering table")
}

// WriteTree writes the report as an indented tree, one operation per line,
// with its elapsed and self time.
func WriteTree(w io.Writer, r Report) error {
	for _, e := range r.Entries {
		_, err := fmt.Fprintf(w, "%8dms %8dms %*s%s\n",
			e.ElapsedMillis(), e.SelfTimeMillis(), 2*e.Depth, "", e.ID)
		if err != nil {
			return errors.Wrap(err, "writing tree")
		}
	}

	return nil
}

// WriteCSV writes the entries as CSV with a header line.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)

	err := cw.Write([]string{"ID", "ParentID", "Depth", "ElapsedMS", "SelfMS"})
	if err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	for _, e := range entries {
		err = cw.Write([]string{
			e.ID,
			e.ParentID,
			strconv.Itoa(e.Depth),
			millis(e.ElapsedMillis()),
			millis(e.SelfTimeMillis()),
		})
		if err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}

	cw.Flush()

	return errors.Wrap(cw.Error(), "flushing csv")
}

// WriteJSON writes the report as an indented JSON document.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return errors.Wrap(enc.Encode(r), "encoding report")
}
