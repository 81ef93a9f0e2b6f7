// Package domain holds the core types shared across every LiquidWatch
// component: liquidation events, subscribers, cascade buckets, aggregated
// market stats, and the error taxonomy components use to signal how a
// failure should be handled upstream.
package domain

import "errors"

// Sentinel errors covering the failure taxonomy used across components.
// Components wrap these with fmt.Errorf("...: %w", ErrX) so callers can
// errors.Is check them without caring about the underlying transport or
// driver error.
var (
	// ErrTransientUpstream covers HTTP timeouts, 5xx responses, and
	// WebSocket drops. Per-venue callers swallow it; the ingest manager
	// reconnects with backoff.
	ErrTransientUpstream = errors.New("transient upstream failure")

	// ErrMalformedUpstream covers payloads that fail to decode. Callers
	// log and continue; they never crash a shard or a scan.
	ErrMalformedUpstream = errors.New("malformed upstream payload")

	// ErrStorageUnavailable covers a document store that cannot be
	// reached. Persistence is skipped; alerting continues unaffected.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrRecipientBlocked covers a 403-class messaging failure. The
	// caller disables that subscriber's notifications and does not retry.
	ErrRecipientBlocked = errors.New("recipient blocked")

	// ErrConfigInvalid covers missing or malformed required configuration.
	// It is the only error allowed to abort startup.
	ErrConfigInvalid = errors.New("invalid configuration")
)
