package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/vitos/signal_trader/internal/config"
	"github.com/vitos/signal_trader/internal/domain"
	"github.com/vitos/signal_trader/internal/infrastructure/exchange"
	"github.com/vitos/signal_trader/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	symbol := flag.String("symbol", "BTCUSDT", "pair to inspect")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing Binance Interaction...\n")
	fmt.Printf("Endpoint: %s (testnet=%v)\n", cfg.Exchange.RESTEndpoint, cfg.Exchange.Testnet)
	fmt.Printf("API Key: %s...\n", cfg.Exchange.APIKey[:min(4, len(cfg.Exchange.APIKey))])

	gateway := exchange.NewBinanceGateway(exchange.BinanceConfig{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		BaseURL:   cfg.Exchange.RESTEndpoint,
		Testnet:   cfg.Exchange.Testnet,
		Timeout:   cfg.ExchangeTimeout(),
	}, zap.NewNop())
	ctx := context.Background()
	pair := strings.ToUpper(*symbol)

	// 2. Check Public Endpoints (Metadata, Price)
	info, found, err := gateway.LookupSymbol(ctx, pair)
	switch {
	case err != nil:
		fmt.Printf("❌ Failed to get exchange info: %v\n", err)
	case !found:
		fmt.Printf("❌ %s is not listed\n", pair)
	default:
		meta, err := usecase.ResolvePairMetadata(info)
		if err != nil {
			fmt.Printf("❌ Incomplete metadata for %s: %v\n", pair, err)
		} else {
			fmt.Printf("✅ %s: minQty=%s precision=%d wire=%d tick=%s minNotional=%s margin=%v\n",
				pair, meta.MinQuantity, meta.Precision, meta.WirePrecision, meta.TickSize, meta.MinNotional, meta.MarginAllowed)
		}
	}

	price, err := gateway.GetPrice(ctx, pair)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s): %s\n", pair, price)
	}

	// 3. Check Private Endpoints (Balances)
	spot, err := gateway.GetSpotBalances(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get spot balances: %v\n", err)
	} else {
		printPositions("Spot", spot)
	}

	cross, err := gateway.GetCrossMarginAssets(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get cross margin account: %v\n", err)
	} else {
		printPositions("Cross margin", cross)
	}

	isolated, err := gateway.GetIsolatedMarginPair(ctx, pair)
	switch {
	case err != nil:
		fmt.Printf("❌ Failed to get isolated pair: %v\n", err)
	case isolated == nil:
		fmt.Printf("⚠️ No isolated account for %s\n", pair)
	default:
		fmt.Printf("✅ Isolated %s: margin ratio %s\n", pair, isolated.MarginRatio)
		printPositions("  Isolated", []domain.AssetPosition{isolated.Base, isolated.Quote})
	}

	orders, err := gateway.ListOpenOrders(ctx, pair, domain.MarketSpot)
	if err != nil {
		fmt.Printf("❌ Failed to list open orders: %v\n", err)
	} else {
		fmt.Printf("✅ Open spot orders on %s: %d\n", pair, len(orders))
	}
}

func printPositions(label string, positions []domain.AssetPosition) {
	fmt.Printf("✅ %s:\n", label)
	for _, p := range positions {
		if p.Free.IsZero() && p.Borrowed.IsZero() {
			continue
		}
		fmt.Printf("   %-8s free=%s borrowed=%s\n", p.Asset, p.Free, p.Borrowed)
	}
}
