// Package alerts is the C6 fan-out router: it turns a real-time
// liquidation, a cascade alert, or an OI surge into rendered messages and
// routes them to the broadcast channel and to subscribers tracking the
// symbol, via C9.
package alerts

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/messaging"
	"github.com/liquidwatch/engine/internal/storage"
)

// Metrics is the subset of the observability surface the router touches.
// Implemented by internal/observability; nil is safe (calls become no-ops).
type Metrics interface {
	AlertSent(kind string)
	AlertDropped(kind string)
	AlertBlocked()
}

// OILookup resolves a best-effort open-interest figure for a symbol, used
// only to decorate cascade messages. A false ok suppresses the OI line.
type OILookup func(ctx context.Context, symbol string) (usd float64, ok bool)

type Router struct {
	store   storage.Store
	sender  messaging.Sender
	metrics Metrics
	lookup  OILookup

	channelID     string
	channelMinUSD float64
}

func NewRouter(store storage.Store, sender messaging.Sender, metrics Metrics, lookup OILookup, channelID string, channelMinUSD float64) *Router {
	return &Router{
		store:         store,
		sender:        sender,
		metrics:       metrics,
		lookup:        lookup,
		channelID:     channelID,
		channelMinUSD: channelMinUSD,
	}
}

func (r *Router) record(kind string, sent bool) {
	if r.metrics == nil {
		return
	}
	if sent {
		r.metrics.AlertSent(kind)
	} else {
		r.metrics.AlertDropped(kind)
	}
}

// RouteLiquidation implements §4.6 for a single real-time event.
func (r *Router) RouteLiquidation(ctx context.Context, l domain.Liquidation) {
	notional := l.Notional()
	message := RenderLiquidation(l)
	r.broadcastIfAbove(ctx, "liquidation", message, notional)
	r.fanOutBySymbol(ctx, "liquidation", l.Symbol, message, func(sub domain.Subscriber) bool {
		return notional >= sub.MinLiquidationAlert
	})
}

// RouteCascade implements §4.6 for a cascade alert.
func (r *Router) RouteCascade(ctx context.Context, alert domain.CascadeAlert) {
	oiUSD := 0.0
	if r.lookup != nil {
		if usd, ok := r.lookup(ctx, alert.Symbol); ok {
			oiUSD = usd
		}
	}
	message := RenderCascade(alert, oiUSD)
	r.broadcastIfAbove(ctx, "cascade", message, alert.TotalVolume)
	r.fanOutBySymbol(ctx, "cascade", alert.Symbol, message, func(sub domain.Subscriber) bool {
		return alert.TotalVolume >= sub.MinLiquidationAlert
	})
}

// RouteOISurge implements §4.6: OI surges always broadcast (if a channel is
// configured) and always fan out to every tracking subscriber regardless of
// magnitude.
func (r *Router) RouteOISurge(ctx context.Context, surge domain.OISurge) {
	message := RenderOISurge(surge)
	if r.channelID != "" {
		r.send(ctx, "oisurge", r.channelID, message)
	}
	r.fanOutBySymbol(ctx, "oisurge", surge.Symbol, message, func(domain.Subscriber) bool { return true })
}

func (r *Router) broadcastIfAbove(ctx context.Context, kind, message string, notional float64) {
	if r.channelID == "" || notional < r.channelMinUSD {
		return
	}
	r.send(ctx, kind, r.channelID, message)
}

func (r *Router) fanOutBySymbol(ctx context.Context, kind, symbol, message string, eligible func(domain.Subscriber) bool) {
	subs, err := r.store.FindSubscribersTrackingSymbol(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to load subscribers for fan-out")
		return
	}
	for _, sub := range subs {
		if !sub.NotificationsEnabled || !eligible(sub) {
			continue
		}
		r.send(ctx, kind, messaging.ChatIDString(sub.ChatID), message)
	}
}

// send is best-effort: RecipientBlocked disables the subscriber, anything
// else transient is logged and dropped. Neither ever propagates to the
// ingest or cascade paths.
func (r *Router) send(ctx context.Context, kind, chatID, message string) {
	err := r.sender.Send(ctx, chatID, message)
	if err == nil {
		r.record(kind, true)
		return
	}

	if errors.Is(err, domain.ErrRecipientBlocked) {
		if r.metrics != nil {
			r.metrics.AlertBlocked()
		}
		if id, parseErr := parseSubscriberChatID(chatID); parseErr == nil && chatID != r.channelID {
			if disableErr := r.store.DisableNotifications(ctx, id); disableErr != nil {
				log.Warn().Err(disableErr).Str("chatId", chatID).Msg("failed to disable blocked subscriber")
			}
		}
		return
	}

	log.Warn().Err(err).Str("chatId", chatID).Str("kind", kind).Msg("alert send failed, dropping")
	r.record(kind, false)
}
