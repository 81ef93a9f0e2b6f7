// Package reporting is the C7 digest renderer: it sums per-symbol long/short
// notional over two comparison windows and renders a ranked digest, built
// from small pure functions over a fetched dataset.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/storage"
)

// NoLiquidationsMessage is the sentinel returned when a subscriber's tracked
// symbols saw no liquidations in the current window.
const NoLiquidationsMessage = "No liquidations in this period."

// FundingLookup resolves a best-effort funding rate for a symbol. A false ok
// omits the funding suffix from that symbol's line.
type FundingLookup func(ctx context.Context, symbol string) (rate float64, ok bool)

type sideTotals map[string]float64 // symbol -> notional

// Generate renders one subscriber's digest. ok is false when there is
// nothing to report (either the raw current window was empty, or every
// tracked symbol netted to zero on both sides after filtering).
func Generate(ctx context.Context, store storage.Store, funding FundingLookup, sub domain.Subscriber, intervalHours int, scheduled bool, now time.Time) (string, bool, error) {
	currentStart, currentEnd, priorStart, priorEnd, scale := windows(intervalHours, scheduled, now)

	currentEvents, err := store.GetOverallLiquidationsBetween(ctx, currentStart, currentEnd)
	if err != nil {
		return "", false, err
	}
	if len(currentEvents) == 0 {
		return NoLiquidationsMessage, false, nil
	}

	priorEvents, err := store.GetOverallLiquidationsBetween(ctx, priorStart, priorEnd)
	if err != nil {
		return "", false, err
	}

	tracked := make(map[string]bool, len(sub.TrackedSymbols))
	for _, s := range sub.TrackedSymbols {
		tracked[s] = true
	}

	currentLong, currentShort := sumBySide(currentEvents, tracked)
	priorLong, priorShort := sumBySide(priorEvents, tracked)
	if scale != 1.0 {
		scaleTotals(priorLong, scale)
		scaleTotals(priorShort, scale)
	}

	if len(currentLong) == 0 && len(currentShort) == 0 {
		return "", false, nil
	}

	return render(intervalHours, scheduled, currentLong, currentShort, priorLong, priorShort, funding, ctx), true, nil
}

// windows resolves the two comparison windows and the prior-window scale
// factor per §4.7 step 1 and step 4.
func windows(intervalHours int, scheduled bool, now time.Time) (curStart, curEnd, priorStart, priorEnd time.Time, scale float64) {
	h := time.Duration(intervalHours) * time.Hour

	if scheduled {
		return now.Add(-h), now, now.Add(-2 * h), now.Add(-h), 1.0
	}

	hourStart := now.Truncate(time.Hour)
	minutesElapsed := now.Sub(hourStart).Minutes()
	scale = minutesElapsed / (h.Minutes())
	if scale <= 0 {
		scale = 1.0
	}
	return hourStart, now, hourStart.Add(-h), hourStart, scale
}

func sumBySide(events []domain.Liquidation, tracked map[string]bool) (long, short sideTotals) {
	long, short = sideTotals{}, sideTotals{}
	for _, e := range events {
		if len(tracked) > 0 && !tracked[e.Symbol] {
			continue
		}
		switch e.Side {
		case domain.LongLiquidated:
			long[e.Symbol] += e.Notional()
		case domain.ShortLiquidated:
			short[e.Symbol] += e.Notional()
		}
	}
	return long, short
}

func scaleTotals(totals sideTotals, scale float64) {
	for symbol, v := range totals {
		totals[symbol] = v * scale
	}
}

func trendArrow(current, prior float64) string {
	switch {
	case current > prior:
		return " ⬆"
	case current < prior:
		return " ⬇"
	default:
		return ""
	}
}

func fundingSuffix(ctx context.Context, funding FundingLookup, symbol string) string {
	if funding == nil {
		return ""
	}
	rate, ok := funding(ctx, symbol)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (funding: %.4f%%)", rate*100)
}

func render(intervalHours int, scheduled bool, currentLong, currentShort, priorLong, priorShort sideTotals, funding FundingLookup, ctx context.Context) string {
	title := fmt.Sprintf("📊 *%dH LIQUIDATION REPORT*", intervalHours)
	if !scheduled {
		title = "📊 *LIVE LIQUIDATION REPORT*"
	}

	lines := []string{title, ""}

	longSubtotal, haveLong := renderSide(&lines, "🔴 LONGS LIQUIDATED", currentLong, priorLong, funding, ctx)
	if haveLong {
		lines = append(lines, "")
	}
	shortSubtotal, haveShort := renderSide(&lines, "🟢 SHORTS LIQUIDATED", currentShort, priorShort, funding, ctx)
	if haveShort {
		lines = append(lines, "")
	}

	if haveLong {
		lines = append(lines, fmt.Sprintf("Longs subtotal: %s", money(longSubtotal)))
	}
	if haveShort {
		lines = append(lines, fmt.Sprintf("Shorts subtotal: %s", money(shortSubtotal)))
	}
	lines = append(lines, fmt.Sprintf("*TOTAL: %s*", money(longSubtotal+shortSubtotal)))

	if rank := renderTopRekted(currentLong, currentShort); rank != "" {
		lines = append(lines, "", rank)
	}

	joined := ""
	for i, l := range lines {
		if i > 0 {
			joined += "\n"
		}
		joined += l
	}
	return joined
}

// renderSide appends header and one line per non-zero symbol to lines, and
// reports whether it appended anything at all. A side with no non-zero
// symbols is omitted entirely rather than shown with a $0 total.
func renderSide(lines *[]string, header string, current, prior sideTotals, funding FundingLookup, ctx context.Context) (float64, bool) {
	symbols := make([]string, 0, len(current))
	for symbol, v := range current {
		if v == 0 {
			continue
		}
		symbols = append(symbols, symbol)
	}
	if len(symbols) == 0 {
		return 0, false
	}
	sort.Strings(symbols)

	*lines = append(*lines, header)
	var subtotal float64
	for _, symbol := range symbols {
		amount := current[symbol]
		subtotal += amount
		arrow := trendArrow(amount, prior[symbol])
		suffix := fundingSuffix(ctx, funding, symbol)
		*lines = append(*lines, fmt.Sprintf("  %s: %s%s%s", symbol, money(amount), arrow, suffix))
	}
	return subtotal, true
}

func renderTopRekted(long, short sideTotals) string {
	longTop := topN(long, 3)
	shortTop := topN(short, 3)
	if len(longTop) == 0 && len(shortTop) == 0 {
		return ""
	}

	medals := []string{"🥇", "🥈", "🥉"}
	lines := []string{"*Top rekted:*"}
	for i, e := range longTop {
		lines = append(lines, fmt.Sprintf("%s %s (long): %s", medals[i], e.symbol, money(e.amount)))
	}
	for i, e := range shortTop {
		lines = append(lines, fmt.Sprintf("%s %s (short): %s", medals[i], e.symbol, money(e.amount)))
	}

	joined := lines[0]
	for _, l := range lines[1:] {
		joined += "\n" + l
	}
	return joined
}

type rankedEntry struct {
	symbol string
	amount float64
}

func topN(totals sideTotals, n int) []rankedEntry {
	entries := make([]rankedEntry, 0, len(totals))
	for symbol, amount := range totals {
		entries = append(entries, rankedEntry{symbol, amount})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].amount > entries[j].amount })
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func money(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	}
	return fmt.Sprintf("$%.0fk", v/1_000)
}
