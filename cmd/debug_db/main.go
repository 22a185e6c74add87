package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/signal_trader/internal/infrastructure/storage"
)

func main() {
	driver := flag.String("driver", storage.DriverSQLite, "storage driver (sqlite or bolt)")
	path := flag.String("path", "signal_trader.db", "store file")
	flag.Parse()

	store, err := storage.Open(*driver, *path)
	if err != nil {
		fmt.Printf("Failed to open %s store: %v\n", *driver, err)
		os.Exit(1)
	}
	defer store.Close()

	record, found, err := store.GetLastTrade(context.Background())
	if err != nil {
		fmt.Printf("Failed to read last trade: %v\n", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("No last trade recorded")
		return
	}

	fmt.Printf("Last trade:\n")
	fmt.Printf("- Symbol: %s\n", record.Symbol)
	fmt.Printf("- Base currency: %s\n", record.BaseCurrency)
	fmt.Printf("- Market: %s\n", record.Market)
	fmt.Printf("- Updated: %s\n", record.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
}
