package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"tradelens/internal/model"

	"github.com/gorilla/websocket"
)

const (
	defaultStreamURL  = "wss://stream.bybit.com/v5/public"
	pingInterval      = 20 * time.Second
	readDeadline      = 60 * time.Second
	reconnectBaseWait = time.Second
	reconnectMaxWait  = 30 * time.Second
)

// KlineEvent is one kline push. Confirm is false while the bar is still
// forming and true on the final update for that bar.
type KlineEvent struct {
	Symbol   string
	Interval model.Interval
	Candle   model.Candle
	Confirm  bool
}

// Stream tails the public v5 kline topic for one symbol and interval.
type Stream struct {
	url      string
	symbol   string
	interval model.Interval
}

// NewStream creates a stream for the category's public endpoint.
// category defaults to linear.
func NewStream(category, symbol string, interval model.Interval) *Stream {
	if category == "" {
		category = defaultCategory
	}
	return &Stream{
		url:      defaultStreamURL + "/" + category,
		symbol:   symbol,
		interval: interval,
	}
}

type wsKlinePush struct {
	Topic string `json:"topic"`
	Data  []struct {
		Start    int64  `json:"start"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
		Confirm  bool   `json:"confirm"`
		Interval string `json:"interval"`
	} `json:"data"`
}

// Run connects, subscribes, and sends events until ctx is cancelled.
// Connection drops reconnect with exponential backoff and resubscribe.
// Run closes events on return.
func (s *Stream) Run(ctx context.Context, events chan<- KlineEvent) error {
	defer close(events)

	wait := reconnectBaseWait
	for {
		err := s.runConn(ctx, events)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[bybit-ws] connection lost: %v, reconnecting in %v", err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > reconnectMaxWait {
			wait = reconnectMaxWait
		}
	}
}

func (s *Stream) runConn(ctx context.Context, events chan<- KlineEvent) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	topic := fmt.Sprintf("kline.%s.%s", s.interval, s.symbol)
	sub := map[string]interface{}{"op": "subscribe", "args": []string{topic}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Printf("[bybit-ws] subscribed to %s", topic)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// Close the connection on cancel so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				ping := map[string]interface{}{"op": "ping"}
				if err := conn.WriteJSON(ping); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var push wsKlinePush
		if err := json.Unmarshal(msg, &push); err != nil || push.Topic == "" {
			continue // op acks and pongs
		}
		for _, d := range push.Data {
			candle, err := parseWSCandle(d.Start, d.Open, d.High, d.Low, d.Close, d.Volume)
			if err != nil {
				log.Printf("[bybit-ws] bad kline on %s: %v", push.Topic, err)
				continue
			}
			ev := KlineEvent{Symbol: s.symbol, Interval: s.interval, Candle: candle, Confirm: d.Confirm}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case events <- ev:
			}
		}
	}
}

func parseWSCandle(startMs int64, open, high, low, close_, volume string) (model.Candle, error) {
	var c model.Candle
	c.TS = time.UnixMilli(startMs).UTC()
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&c.Open, open}, {&c.High, high}, {&c.Low, low}, {&c.Close, close_}, {&c.Volume, volume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("parse %q: %w", f.src, model.ErrData)
		}
		*f.dst = v
	}
	return c, c.Validate()
}
