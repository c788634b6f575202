// Package report renders fee comparisons for terminal and JSON consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourorg/bridge-fee-tracker/internal/compare"
	"github.com/yourorg/bridge-fee-tracker/internal/types"
)

// Output formats supported by the Printer.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// componentLabels maps breakdown keys to their table labels. Keys without an
// entry fall back to a title-cased version of the key.
var componentLabels = map[string]string{
	"relay_fee":  "Relay Fee",
	"lp_fee":     "LP Fee",
	"bonder_fee": "Bonder Fee",
	"amm_fee":    "AMM Fee",
}

// componentOrder fixes the display order of the known fee components.
var componentOrder = []string{"relay_fee", "lp_fee", "bonder_fee", "amm_fee"}

var protocolLabels = map[string]string{
	"across": "Across",
	"hop":    "Hop",
}

// Printer centralizes output formatting for commands. It respects the
// --output flag (text|json) and writes to the supplied writer.
type Printer struct {
	format string
	out    io.Writer
}

// NewPrinter creates a printer for the given output format. Unknown formats
// fall back to text.
func NewPrinter(format string, out io.Writer) *Printer {
	if format != FormatJSON {
		format = FormatText
	}
	return &Printer{format: format, out: out}
}

// Comparison renders a single fee comparison.
func (p *Printer) Comparison(c compare.Comparison) error {
	if p.format == FormatJSON {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	_, err := io.WriteString(p.out, p.renderText(c))
	return err
}

// Textf prints formatted text, but only in text mode so JSON output stays
// machine readable.
func (p *Printer) Textf(format string, a ...any) {
	if p.format == FormatJSON {
		return
	}
	fmt.Fprintf(p.out, format, a...)
}

func (p *Printer) renderText(c compare.Comparison) string {
	var b strings.Builder

	token := c.Request.Token
	b.WriteString("Bridge Fee Comparison\n")
	fmt.Fprintf(&b, "Token:  %s\n", token)
	fmt.Fprintf(&b, "From:   %s\n", chainLabel(c.Request.SourceChain))
	fmt.Fprintf(&b, "To:     %s\n", chainLabel(c.Request.DestChain))
	fmt.Fprintf(&b, "Amount: %s %s\n\n", c.Request.Amount, token)

	headers := []string{"Protocol", "Total Fee", "Fee Breakdown"}
	rows := make([][]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		rows = append(rows, tableRow(r, token))
	}
	b.WriteString(RenderTable(headers, rows))

	fmt.Fprintf(&b, "\nFetched %d/%d quotes\n", c.SuccessCount(), len(c.Rows))
	if best, ok := c.Best(); ok {
		fmt.Fprintf(&b, "Cheapest: %s at %s %s\n", protocolLabel(best.Protocol), best.Quote.TotalFee.StringFixed(6), token)
	}
	if spread, ok := c.Spread(); ok {
		fmt.Fprintf(&b, "Spread:   %s %s\n", spread.StringFixed(6), token)
	}
	return b.String()
}

// tableRow converts a comparison row into table cells. Failed rows keep
// their error message in the breakdown column with N/A as the total.
func tableRow(r compare.Row, token string) []string {
	name := protocolLabel(r.Protocol)
	if r.FromCache {
		name += " (cached)"
	}

	if r.Failed() {
		reason := r.Error
		if reason == "" {
			reason = "no quote"
		}
		return []string{name, "N/A", reason}
	}

	lines := make([]string, 0, len(r.Quote.Breakdown))
	for _, key := range breakdownKeys(r.Quote.Breakdown) {
		lines = append(lines, fmt.Sprintf("%s: %s %s", componentLabel(key), r.Quote.Breakdown[key].StringFixed(6), token))
	}
	return []string{name, r.Quote.TotalFee.StringFixed(6) + " " + token, strings.Join(lines, "\n")}
}

// breakdownKeys returns the component keys in display order: the well-known
// components first, anything else alphabetically after them.
func breakdownKeys(breakdown map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(breakdown))
	seen := make(map[string]bool, len(breakdown))
	for _, key := range componentOrder {
		if _, ok := breakdown[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(breakdown))
	for key := range breakdown {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func componentLabel(key string) string {
	if label, ok := componentLabels[key]; ok {
		return label
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func protocolLabel(protocol string) string {
	if label, ok := protocolLabels[protocol]; ok {
		return label
	}
	if protocol == "" {
		return protocol
	}
	return strings.ToUpper(protocol[:1]) + protocol[1:]
}

func chainLabel(chain string) string {
	cfg, err := types.GetChainConfig(chain)
	if err != nil {
		return chain
	}
	return cfg.DisplayName
}

// RenderTable renders a bordered monospaced table. Cells may contain
// newlines; each line is laid out inside the same bordered row.
func RenderTable(headers []string, rows [][]string) string {
	const maxWidth = 60

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	// Split cells into lines and cap each line at maxWidth.
	split := make([][][]string, len(rows))
	for ri, row := range rows {
		split[ri] = make([][]string, len(headers))
		for ci := range headers {
			cell := ""
			if ci < len(row) {
				cell = row[ci]
			}
			lines := strings.Split(cell, "\n")
			for li, line := range lines {
				if len(line) > maxWidth {
					lines[li] = line[:maxWidth-3] + "..."
				}
				if l := len(lines[li]); l > widths[ci] {
					widths[ci] = l
				}
			}
			split[ri][ci] = lines
		}
	}

	var border strings.Builder
	for _, w := range widths {
		border.WriteString("+")
		border.WriteString(strings.Repeat("-", w+2))
	}
	border.WriteString("+\n")

	var b strings.Builder
	b.WriteString(border.String())
	for i, h := range headers {
		fmt.Fprintf(&b, "| %-*s ", widths[i], h)
	}
	b.WriteString("|\n")
	b.WriteString(border.String())

	for _, cells := range split {
		height := 1
		for _, lines := range cells {
			if len(lines) > height {
				height = len(lines)
			}
		}
		for li := 0; li < height; li++ {
			for ci := range headers {
				line := ""
				if li < len(cells[ci]) {
					line = cells[ci][li]
				}
				fmt.Fprintf(&b, "| %-*s ", widths[ci], line)
			}
			b.WriteString("|\n")
		}
		b.WriteString(border.String())
	}
	return b.String()
}
