package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWSURL = "wss://wbs.mexc.com/ws"
	pingInterval = 20 * time.Second
	readDeadline = 60 * time.Second
)

type wsRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
}

type wsEnvelope struct {
	Channel string          `json:"c"`
	Symbol  string          `json:"s"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"d"`
}

type dealsPayload struct {
	Deals []struct {
		Price    string `json:"p"`
		Quantity string `json:"v"`
		Side     int    `json:"S"`
		TimeMs   int64  `json:"t"`
	} `json:"deals"`
}

func main() {
	var (
		wsURL  string
		symbol string
	)
	flag.StringVar(&wsURL, "ws-url", defaultWSURL, "exchange websocket url")
	flag.StringVar(&symbol, "symbol", "", "symbol, e.g. XYZUSDT (required)")
	flag.Parse()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	wsURL = strings.TrimSpace(wsURL)
	if symbol == "" || wsURL == "" {
		fatal("ws-url/symbol are required")
	}
	channel := "spot@public.deals.v3.api@" + symbol

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	cancel()
	if err != nil {
		fatal(fmt.Sprintf("dial %s failed: %v", wsURL, err))
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(wsRequest{Method: "SUBSCRIPTION", Params: []string{channel}}); err != nil {
		fatal(fmt.Sprintf("subscribe %s failed: %v", channel, err))
	}
	fmt.Printf("watching symbol=%s channel=%s url=%s\n", symbol, channel, wsURL)

	// The server drops idle connections, so keep a PING loop running
	// until the context is canceled.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteJSON(wsRequest{Method: "PING"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("pricewatch stopped")
				return
			}
			fatal(fmt.Sprintf("read failed: %v", err))
		}
		printTicks(symbol, raw)
	}
}

func printTicks(symbol string, raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	if env.Channel == "" {
		// Subscription acks and PONG replies carry msg only.
		if env.Msg != "" && env.Msg != "PONG" {
			fmt.Printf("server msg=%q\n", env.Msg)
		}
		return
	}
	var payload dealsPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return
	}
	for _, deal := range payload.Deals {
		side := "BUY"
		if deal.Side == 2 {
			side = "SELL"
		}
		ts := time.UnixMilli(deal.TimeMs).UTC().Format(time.RFC3339Nano)
		fmt.Printf("tick time=%s symbol=%s price=%s qty=%s side=%s\n",
			ts, symbol, deal.Price, deal.Quantity, side)
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
