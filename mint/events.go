package mint

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type EventType string

const (
	EventPayment  EventType = "payment"
	EventMinted   EventType = "minted"
	EventRefunded EventType = "refunded"
	EventRejected EventType = "rejected"
	EventBurned   EventType = "burned"
)

// Event is broadcast to the runner's websocket clients.
type Event struct {
	Type     EventType `json:"type"`
	Drop     string    `json:"drop,omitempty"`
	Payment  string    `json:"payment,omitempty"`
	Payer    string    `json:"payer,omitempty"`
	Lovelace uint64    `json:"lovelace,omitempty"`
	Tokens   []string  `json:"tokens,omitempty"`
	TxHash   string    `json:"txHash,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Time     int64     `json:"time"`
}

type EventSink interface {
	Publish(ev Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}

func stamp(ev Event) Event {
	if ev.Time == 0 {
		ev.Time = time.Now().Unix()
	}
	return ev
}

var (
	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tcr",
		Subsystem: "mint",
		Name:      "payments_total",
		Help:      "Payments handled by the mint runner, by result.",
	}, []string{"result"})

	tokensMinted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tcr",
		Subsystem: "mint",
		Name:      "tokens_minted_total",
		Help:      "NFTs minted.",
	})

	tokensBurned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tcr",
		Subsystem: "mint",
		Name:      "tokens_burned_total",
		Help:      "Tokens burned.",
	})

	dropRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tcr",
		Subsystem: "mint",
		Name:      "drop_remaining",
		Help:      "NFTs left in the drop.",
	}, []string{"drop"})
)
