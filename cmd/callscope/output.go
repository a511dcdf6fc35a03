package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/soinglobal/callscope/internal/domain"
)

const timeFormat = "2006-01-02 15:04"

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fmtNullable renders a nullable decimal, "-" for unknown.
func fmtNullable(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmtFloat(*v)
}

func fmtFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeFormat)
}

func printContractTable(aggs []domain.ContractAggregate) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONTRACT\tCHANGE%\tBASE CAP\tCURR CAP\tPRICE\tMENTIONS\tACTORS\tLATEST")
	for _, a := range aggs {
		var baseCap, currCap, price *float64
		if a.Baseline != nil {
			baseCap = a.Baseline.MarketCap
		}
		if a.Current != nil {
			currCap = a.Current.MarketCap
			price = a.Current.PriceUsd
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			a.ContractAddress,
			fmtNullable(a.ChangePercent),
			fmtNullable(baseCap),
			fmtNullable(currCap),
			fmtNullable(price),
			a.MentionCount,
			strings.Join(a.MentioningActors, ","),
			fmtTime(a.LatestMentionAt),
		)
	}
	w.Flush()
}

func printEntityTable(aggs []domain.EntityAggregate) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCALLS\tWINS\tRATE%\tTOTAL\tAVG\tBEST\tWORST\tCONTRACTS")
	for _, a := range aggs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			a.ID,
			a.CallCount,
			a.SuccessCount,
			fmtFloat(a.SuccessRate),
			fmtFloat(a.TotalDelta),
			fmtFloat(a.AverageDelta),
			fmtFloat(a.BestDelta),
			fmtFloat(a.WorstDelta),
			len(a.UniqueContracts),
		)
	}
	w.Flush()
}

func printSnapshot(contract string, snap domain.MarketSnapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Contract:\t%s\n", contract)
	if snap.TokenName != "" {
		fmt.Fprintf(w, "Token:\t%s (%s)\n", snap.TokenName, snap.TokenSymbol)
	}
	if snap.ChainID != "" {
		fmt.Fprintf(w, "Chain:\t%s\n", snap.ChainID)
	}
	fmt.Fprintf(w, "Price USD:\t%s\n", fmtNullable(snap.PriceUsd))
	fmt.Fprintf(w, "Market cap:\t%s\n", fmtNullable(snap.MarketCap))
	fmt.Fprintf(w, "Provenance:\t%s\n", snap.Provenance)
	fmt.Fprintf(w, "Observed:\t%s\n", fmtTime(snap.ObservedAt))
	if snap.PairURL != "" {
		fmt.Fprintf(w, "Pair:\t%s\n", snap.PairURL)
	}
	w.Flush()
}

func printCallTable(events []domain.CallEvent) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tACTOR\tCHANNEL\tBASE CAP\tBASE PRICE\tMESSAGE")
	for _, e := range events {
		var baseCap, basePrice *float64
		if e.Baseline != nil {
			baseCap = e.Baseline.MarketCap
			basePrice = e.Baseline.PriceUsd
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			fmtTime(e.OccurredAt),
			e.Actor,
			e.Channel,
			fmtNullable(baseCap),
			fmtNullable(basePrice),
			truncate(e.Message, 48),
		)
	}
	w.Flush()
}
