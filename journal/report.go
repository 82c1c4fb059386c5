package journal

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"
)

// Report summarises journalled records as an Org-mode document.
type Report struct {
	Title       string
	Created     time.Time
	Predictions []PredictionRecord
	Signals     []SignalRecord
}

// DigitCount is how often a digit was predicted.
type DigitCount struct {
	Digit int
	Count int
}

// PredictedDigits counts predictions per digit, most frequent first.
func (r Report) PredictedDigits() []DigitCount {
	var counts [10]int
	for _, p := range r.Predictions {
		if p.Digit >= 0 && p.Digit <= 9 {
			counts[p.Digit]++
		}
	}

	var out []DigitCount
	for d, n := range counts {
		if n > 0 {
			out = append(out, DigitCount{Digit: d, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// SignalCount is the number of calls per symbol and direction.
type SignalCount struct {
	Symbol string
	Even   int
	Odd    int
	Strong int
}

// SignalsBySymbol groups the signals per symbol in symbol order.
func (r Report) SignalsBySymbol() []SignalCount {
	by := map[string]*SignalCount{}
	for _, s := range r.Signals {
		c, ok := by[s.Symbol]
		if !ok {
			c = &SignalCount{Symbol: s.Symbol}
			by[s.Symbol] = c
		}
		switch s.Direction {
		case "EVEN":
			c.Even++
		case "ODD":
			c.Odd++
		}
		if s.Strength == "strong" {
			c.Strong++
		}
	}

	out := make([]SignalCount, 0, len(by))
	for _, c := range by {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

var reportFuncs = template.FuncMap{
	"join": strings.Join,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(ReportOrgTemplate))

// WriteOrg renders the report to w.
func (r Report) WriteOrg(w io.Writer) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

const ReportOrgTemplate = `* DIGITS: {{if .Title}}{{.Title}}{{else}}session{{end}}
:PROPERTIES:
:PREDICTIONS: {{len .Predictions}}
:SIGNALS:     {{len .Signals}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Predicted Digits
| Digit | Count |
|-------+-------|
{{- range .PredictedDigits }}
| {{.Digit}} | {{.Count}} |
{{- end }}

** Even/Odd Calls
| Symbol | Even | Odd | Strong |
|--------+------+-----+--------|
{{- range .SignalsBySymbol }}
| {{.Symbol}} | {{.Even}} | {{.Odd}} | {{.Strong}} |
{{- end }}

{{- if .Predictions }}

** Predictions
{{- range .Predictions }}
- [{{stamp .Time}}] digit {{.Digit}} at {{printf "%.2f" .Percentage}}% ({{join .Markets ", "}})
{{- end }}
{{- end }}
`
