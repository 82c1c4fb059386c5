package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/digitpro/engine"
)

// printAnalysis writes a human summary of a in the style of the dashboard.
func printAnalysis(w io.Writer, a engine.Analysis) {
	fmt.Fprintf(w, "Ticks processed: %d (window %d, %d markets)\n", a.Processed, a.TickCount, len(a.Symbols))

	fmt.Fprintln(w, "\nDigit frequencies:")
	for d, p := range a.Percentages {
		mark := ""
		switch d {
		case a.Highest:
			mark = "  highest"
		case a.Lowest:
			mark = "  lowest"
		}
		fmt.Fprintf(w, "  %d  %6.2f%%%s\n", d, p, mark)
	}

	fmt.Fprintf(w, "\nHot digits (>= %.1f%%, %d/%d markets ready):\n", a.Hot.Threshold, a.Hot.ReadyMarkets, a.Hot.TotalMarkets)
	if !a.Hot.Ready {
		fmt.Fprintln(w, "  waiting for every market to fill its window")
	} else if len(a.Hot.Digits) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, h := range a.Hot.Digits {
		var markets []string
		for _, m := range h.Markets {
			markets = append(markets, fmt.Sprintf("%s %.2f%%", m.Symbol, m.Percentage))
		}
		fmt.Fprintf(w, "  %d  %6.2f%%  %s\n", h.Digit, h.Percentage, strings.Join(markets, ", "))
	}

	if p := a.Prediction; p != nil {
		fmt.Fprintf(w, "\nPrediction: digit %d (%.2f%%) until %s\n", p.Digit, p.Percentage, p.Until.Format("15:04:05"))
	}

	fmt.Fprintln(w, "\nEven/odd:")
	for _, s := range a.EvenOdd {
		if !s.Ready {
			fmt.Fprintf(w, "  %-8s %-18s waiting (%d/%d)\n", s.Symbol, s.MarketName, s.Ticks, a.TickCount)
			continue
		}
		call := "-"
		if s.HasCall() {
			call = string(s.Direction)
		}
		fmt.Fprintf(w, "  %-8s %-18s even %6.2f%%  odd %6.2f%%  %-4s %s\n",
			s.Symbol, s.MarketName, s.EvenPercentage, s.OddPercentage, call, s.Strength)
	}

	if len(a.Recent) > 0 {
		var b strings.Builder
		for _, d := range a.Recent {
			fmt.Fprintf(&b, "%d", d.Digit)
		}
		fmt.Fprintf(w, "\nRecent digits: %s\n", b.String())
	}
}
