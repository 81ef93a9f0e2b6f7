package alerts

import (
	"fmt"
	"math"

	"github.com/liquidwatch/engine/internal/domain"
)

const whaleThreshold = 1_000_000.0

// formatUSD implements the §6.3 value-formatting rule: values at or above
// $1,000,000 render as "$X.XXM"; everything else renders as "$Xk". It governs
// notional/volume fields only — per-unit prices use formatPrice instead,
// since bucketing a sub-$1000 asset's price into "$Xk" rounds it to "$0k".
func formatUSD(value float64) string {
	if value >= whaleThreshold {
		return fmt.Sprintf("$%.2fM", value/1_000_000)
	}
	return fmt.Sprintf("$%.0fk", math.Round(value/1_000))
}

// formatPrice renders a per-unit price at a precision that keeps it legible
// across the tracked universe's wide range of magnitudes, from sub-cent
// assets (SHIB, PEPE, BONK) to five- and six-figure ones (BTC, ETH).
func formatPrice(price float64) string {
	switch {
	case price >= 1:
		return fmt.Sprintf("$%.2f", price)
	case price >= 0.01:
		return fmt.Sprintf("$%.4f", price)
	case price > 0:
		return fmt.Sprintf("$%.8f", price)
	default:
		return "$0"
	}
}

func sideLabel(side domain.Side) string {
	if side == domain.ShortLiquidated {
		return "Short"
	}
	return "Long"
}

func sideIcon(side domain.Side) string {
	if side == domain.ShortLiquidated {
		return "🟢"
	}
	return "🔴"
}

// RenderLiquidation formats a single real-time liquidation event.
func RenderLiquidation(l domain.Liquidation) string {
	notional := l.Notional()
	body := fmt.Sprintf("%s *#%s REKT %s:* %s at %s",
		sideIcon(l.Side), l.Symbol, sideLabel(l.Side), formatUSD(notional), formatPrice(l.Price))

	if notional >= whaleThreshold {
		return "🔥 *WHALE ALERT!* 🔥\n" + body
	}
	return body
}

// RenderCascade formats a cascade alert. oiUSD is optional context (0
// suppresses the OI line); it comes from a best-effort C3 lookup.
func RenderCascade(alert domain.CascadeAlert, oiUSD float64) string {
	verb := "Longs Rekt"
	if alert.Side == domain.ShortLiquidated {
		verb = "Shorts Squeezed"
	}

	pct := 0.0
	if alert.MinPrice > 0 {
		pct = (alert.MaxPrice - alert.MinPrice) / alert.MinPrice * 100
	}

	msg := fmt.Sprintf(
		"%s *CASCADE ALERT: %s*\n\n💀 *%s* (x%d orders)\n💰 Total Volume: *%s* in 10s\n📉 Range: %s - %s (%.2f%%)",
		sideIcon(alert.Side), alert.Symbol, verb, alert.Count,
		formatUSD(alert.TotalVolume), formatPrice(alert.MinPrice), formatPrice(alert.MaxPrice), pct,
	)
	if oiUSD > 0 {
		msg += fmt.Sprintf("\n📊 OI: $%.2fM", oiUSD/1_000_000)
	}
	return msg
}

// RenderOISurge formats an open-interest surge alert.
func RenderOISurge(surge domain.OISurge) string {
	trendIcon, moveIcon, verb := "📈", "🟢", "INCREASED"
	if surge.PercentChange < 0 {
		trendIcon, moveIcon, verb = "📉", "🔴", "DROPPED"
	}

	return fmt.Sprintf(
		"%s *OI ALERT: %s*\n\n%s Open Interest %s by *%.2f%%* in 15 min!\n\n💵 Price: %s\n💰 New OI: *$%.2fM*",
		trendIcon, surge.Symbol, moveIcon, verb, math.Abs(surge.PercentChange),
		formatPrice(surge.Price), surge.CurrentOI/1_000_000,
	)
}
