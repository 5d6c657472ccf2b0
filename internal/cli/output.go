package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

func printSectionHeader(w io.Writer, title string, lines ...string) {
	_, _ = fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, l := range lines {
		_, _ = fmt.Fprintln(w, l)
	}
}

func renderStats(w io.Writer, stats []RangeStats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Chunk", "Range", "Primes", "Largest")

	total := 0
	for i, s := range stats {
		total += s.Count
		_ = table.Append(i, s.String(), s.Count, s.Largest)
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, _ = green.Fprintf(w, "total primes: %d\n", total)
	return nil
}

func printFailure(w io.Writer, err error) {
	_, _ = red.Fprintf(w, "error: %v\n", err)
}
