package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/vitos/signal_trader/internal/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	url := flag.String("url", "", "webhook URL (default http://localhost:<server.port>/webhook)")
	ticker := flag.String("ticker", "BTCUSDT", "pair to trade")
	base := flag.String("base", "USDT", "base currency of the pair")
	side := flag.String("side", "BUY", "BUY or SELL")
	market := flag.String("market", "SPOT", "SPOT, CROSS or ISOLATED")
	leverage := flag.String("leverage", "0", "margin leverage")
	equity := flag.String("equity", "10", "percent of equity to commit")
	stopLoss := flag.String("stop-loss", "2", "stop loss percent")
	overwrite := flag.Bool("overwrite", false, "roll the previous position into this pair")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *url == "" {
		*url = fmt.Sprintf("http://localhost:%d/webhook", cfg.Server.Port)
	}

	payload := map[string]any{
		"passphrase":    cfg.Webhook.Passphrase,
		"ticker":        *ticker,
		"base_currency": *base,
		"strategy": map[string]any{
			"order_action": *side,
			"market":       *market,
			"leverage":     *leverage,
			"order_equity": *equity,
			"stop_loss":    *stopLoss,
			"overwrite":    *overwrite,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Failed to encode payload: %v", err)
	}

	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(*url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("HTTP %d: %s\n", resp.StatusCode, bytes.TrimSpace(out))
}
