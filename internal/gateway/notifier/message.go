package notifier

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Telegram caps a message at 4096 characters.
const maxAlertLen = 3800

// Row is one order of a trade as shown in an alert table. Base is the
// commission-adjusted filled size, which is what recovery sizing uses.
type Row struct {
	Role     string
	Broker   string
	Side     string
	Status   string
	Filled   float64
	Size     float64
	AvgPrice float64
	Base     float64
}

// Alert is an operator message about one trade: a header, the order table
// in a code block, free-form notes and the triggering error.
type Alert struct {
	Icon      string
	Title     string
	Rows      []Row
	Notes     []string
	Err       string
	Timestamp time.Time
}

// RenderMarkdown renders a for a chat message. Rows that do not fit are
// dropped from the end and counted, then the error text is cut.
func (a Alert) RenderMarkdown() string {
	for shown := len(a.Rows); shown > 0; shown-- {
		if body := a.render(shown); len(body) <= maxAlertLen {
			return body
		}
	}
	body := a.render(0)
	if len(body) > maxAlertLen {
		body = body[:maxAlertLen] + "..."
	}
	return body
}

func (a Alert) render(shown int) string {
	var b strings.Builder
	if header := strings.TrimSpace(a.Icon + " " + a.Title); header != "" {
		b.WriteString(clean(header) + "\n\n")
	}
	if shown > 0 {
		b.WriteString("```\n")
		b.WriteString(table(a.Rows[:shown]))
		if hidden := len(a.Rows) - shown; hidden > 0 {
			fmt.Fprintf(&b, "(+%d more)\n", hidden)
		}
		b.WriteString("```\n\n")
	}
	for _, note := range a.Notes {
		if note = strings.TrimSpace(note); note != "" {
			b.WriteString(clean(note) + "\n")
		}
	}
	if e := strings.TrimSpace(a.Err); e != "" {
		b.WriteString("error: " + clean(e) + "\n")
	}
	if !a.Timestamp.IsZero() {
		b.WriteString("time: " + a.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	return strings.TrimSpace(b.String())
}

func table(rows []Row) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "role\tbroker\tside\tstatus\tfilled/size\tavg price\tbase")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s/%s\t%s\t%s\n",
			clean(r.Role), clean(r.Broker), clean(r.Side), clean(r.Status),
			num(r.Filled), num(r.Size), num(r.AvgPrice), num(r.Base))
	}
	_ = w.Flush()
	return b.String()
}

func num(f float64) string {
	return decimal.NewFromFloat(f).Round(8).String()
}

// clean keeps venue text from closing the code block early.
func clean(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
