package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// SummaryRow is one method line of the summary table.
type SummaryRow struct {
	Method     string
	Descriptor string
	CodeLength int
	Insts      int
	Blocks     int
	Tombstones int
	Diags      int
	Status     string
}

// Summarize returns one row per method of c.
func Summarize(c *Class) []SummaryRow {
	rows := make([]SummaryRow, 0, len(c.Methods))
	for _, m := range c.Methods {
		row := SummaryRow{
			Method:     m.Member.Name,
			Descriptor: m.Member.Descriptor,
			Insts:      len(m.Insts),
			Diags:      m.Diags.Len(),
			Status:     "ok",
		}
		if m.Code != nil {
			row.CodeLength = len(m.Code.Bytes)
		}
		if m.Graph != nil {
			row.Blocks = len(m.Graph.Live())
			row.Tombstones = m.Graph.Tombstones()
		}
		switch {
		case m.Err != nil:
			row.Status = "failed"
		case !m.HasCode():
			row.Status = "no code"
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteSummary renders the per-method table for c.
func WriteSummary(w io.Writer, c *Class) {
	rows := Summarize(c)
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Method", "Descriptor", "Bytes", "Insts", "Blocks", "Tombstones", "Diags", "Status"})

	var bytes, insts, blocks, diags int
	for _, r := range rows {
		table.Append([]string{
			r.Method,
			r.Descriptor,
			strconv.Itoa(r.CodeLength),
			strconv.Itoa(r.Insts),
			strconv.Itoa(r.Blocks),
			strconv.Itoa(r.Tombstones),
			strconv.Itoa(r.Diags),
			r.Status,
		})
		bytes += r.CodeLength
		insts += r.Insts
		blocks += r.Blocks
		diags += r.Diags
	}
	table.SetFooter([]string{
		c.File.Name,
		fmt.Sprintf("%d methods", len(rows)),
		strconv.Itoa(bytes),
		strconv.Itoa(insts),
		strconv.Itoa(blocks),
		" ",
		strconv.Itoa(diags),
		fmt.Sprintf("%d failed", len(c.Failed())),
	})
	table.Render()
}
