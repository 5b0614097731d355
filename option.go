package wallethopper

import (
	"time"

	"github.com/tkeith/wallet-hopper-2/clients"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/metrics"
	"github.com/tkeith/wallet-hopper-2/pipeline"
	"github.com/tkeith/wallet-hopper-2/preferences"
	"github.com/tkeith/wallet-hopper-2/remediation"
)

type Option func(*Hopper)

func WithLogger(l logger.Logger) Option {
	return func(h *Hopper) {
		h.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(h *Hopper) {
		h.metrics = r
	}
}

// WithTimeout bounds every outgoing HTTP request.
func WithTimeout(t time.Duration) Option {
	return func(h *Hopper) {
		h.timeout = t
	}
}

// WithWallet uses w for account access and writes. When w also implements
// clients.ChainReader it is used for receipts unless WithChainReader is given.
func WithWallet(w clients.Wallet) Option {
	return func(h *Hopper) {
		h.wallet = w
	}
}

// WithEVMWallet dials rpcURL and signs locally with the hex private key.
func WithEVMWallet(rpcURL, privateKeyHex string) Option {
	return func(h *Hopper) {
		h.rpcURL = rpcURL
		h.keyHex = privateKeyHex
	}
}

func WithChainReader(r clients.ChainReader) Option {
	return func(h *Hopper) {
		h.reader = r
	}
}

// WithEventSink receives every pipeline state transition.
func WithEventSink(s pipeline.EventSink) Option {
	return func(h *Hopper) {
		h.events = s
	}
}

func WithContentStore(s preferences.ContentStore) Option {
	return func(h *Hopper) {
		h.store = s
	}
}

func WithCache(c preferences.Cache) Option {
	return func(h *Hopper) {
		h.cache = c
	}
}

func WithQuoteClient(q remediation.Quoter) Option {
	return func(h *Hopper) {
		h.quoter = q
	}
}

// WithClock replaces the pipeline sleep and the time source, for tests.
func WithClock(sleep pipeline.Sleeper, now func() time.Time) Option {
	return func(h *Hopper) {
		h.sleep = sleep
		h.now = now
	}
}
