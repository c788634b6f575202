package compare

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// Outcome hält das Ergebnis eines einzelnen Protokoll-Abrufs
// Quote und Err schließen sich gegenseitig aus
type Outcome struct {
	Protocol  string
	Quote     *model.FeeQuote
	Err       error
	FromCache bool
}

// Row ist eine Zeile des fertigen Vergleichs
// Fehlgeschlagene Abrufe bleiben als Zeile ohne Quote erhalten
type Row struct {
	Protocol  string          `json:"protocol"`
	Quote     *model.FeeQuote `json:"quote,omitempty"`
	Error     string          `json:"error,omitempty"`
	FromCache bool            `json:"from_cache,omitempty"`
}

// Failed meldet, ob die Zeile keinen verwertbaren Quote enthält
func (r Row) Failed() bool {
	return r.Quote == nil
}

// Comparison ist der vollständige Gebührenvergleich für eine Route
type Comparison struct {
	Request   model.QuoteRequest `json:"request"`
	Rows      []Row              `json:"rows"`
	CreatedAt time.Time          `json:"created_at"`
}

// Build erstellt einen Vergleich aus den Ergebnissen aller Protokolle
// Erfolgreiche Zeilen werden nach Gesamtgebühr aufsteigend sortiert, fehlgeschlagene folgen
// in Protokoll-Reihenfolge dahinter
func Build(req model.QuoteRequest, outcomes []Outcome) Comparison {
	rows := make([]Row, 0, len(outcomes))
	for _, o := range outcomes {
		row := Row{
			Protocol:  o.Protocol,
			Quote:     o.Quote,
			FromCache: o.FromCache,
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i], rows[j]
		if ri.Failed() != rj.Failed() {
			return !ri.Failed()
		}
		if ri.Failed() {
			return ri.Protocol < rj.Protocol
		}
		if !ri.Quote.TotalFee.Equal(rj.Quote.TotalFee) {
			return ri.Quote.TotalFee.LessThan(rj.Quote.TotalFee)
		}
		return ri.Protocol < rj.Protocol
	})

	return Comparison{
		Request:   req,
		Rows:      rows,
		CreatedAt: time.Now().UTC(),
	}
}

// Best liefert die günstigste erfolgreiche Zeile
// Das zweite Ergebnis ist false, wenn kein Protokoll einen Quote geliefert hat
func (c Comparison) Best() (Row, bool) {
	if len(c.Rows) == 0 || c.Rows[0].Failed() {
		return Row{}, false
	}
	return c.Rows[0], true
}

// Spread berechnet die Differenz zwischen teuerstem und günstigstem Quote
// Braucht mindestens zwei erfolgreiche Zeilen, sonst ist das zweite Ergebnis false
func (c Comparison) Spread() (decimal.Decimal, bool) {
	success := make([]Row, 0, len(c.Rows))
	for _, r := range c.Rows {
		if !r.Failed() {
			success = append(success, r)
		}
	}
	if len(success) < 2 {
		return decimal.Decimal{}, false
	}

	// Zeilen sind bereits aufsteigend sortiert
	cheapest := success[0].Quote.TotalFee
	priciest := success[len(success)-1].Quote.TotalFee
	return priciest.Sub(cheapest), true
}

// SuccessCount zählt die Zeilen mit verwertbarem Quote
func (c Comparison) SuccessCount() int {
	n := 0
	for _, r := range c.Rows {
		if !r.Failed() {
			n++
		}
	}
	return n
}

// Complete meldet, ob jedes Protokoll einen Quote geliefert hat
func (c Comparison) Complete() bool {
	return len(c.Rows) > 0 && c.SuccessCount() == len(c.Rows)
}
