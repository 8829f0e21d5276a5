package main

import (
	"fmt"
	"os"

	"code.cloudfoundry.org/clock"
	"github.com/shopspring/decimal"
	"github.com/tedsuo/ifrit"

	auction "delivery-auction/internal/auctionService"
	"delivery-auction/internal/config"
	"delivery-auction/internal/db"
	"delivery-auction/internal/events"
	model "delivery-auction/internal/models"
	"delivery-auction/internal/orders"
	"delivery-auction/internal/repository"
	"delivery-auction/internal/server"
	"delivery-auction/internal/sweeper"
)

func main() {
	cfg := config.LoadConfig()

	store, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize auction store: %v\n", err)
		os.Exit(1)
	}

	orderDir := orders.NewMemoryOrders()
	provisionDemoOrders(orderDir)

	publisher, closePublisher, err := buildPublisher(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect event publisher: %v\n", err)
		os.Exit(1)
	}
	if closePublisher != nil {
		defer closePublisher()
	}

	clk := clock.NewClock()
	auctionSvc := auction.NewAuctionService(store, orderDir, publisher, clk, auction.Config{
		BiddingWindow: cfg.BiddingWindow,
		EventsTopic:   cfg.KafkaTopic,
	})

	// Background sweep keeps auctions resolving even when nobody polls.
	sweepProcess := ifrit.Invoke(sweeper.New(auctionSvc, clk, cfg.SweepInterval))
	defer sweepProcess.Signal(os.Interrupt)

	router := server.SetupRouter(auctionSvc)

	fmt.Printf("Starting delivery auction server on %s...\n", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// buildStore picks the Postgres-backed store when a DSN is configured,
// falling back to the in-memory store
func buildStore(cfg *config.Config) (repository.AuctionStore, error) {
	if cfg.DSN == "" {
		return repository.NewMemoryRepo(), nil
	}
	database, err := db.NewDB(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		return nil, err
	}
	return repository.NewPostgresRepo(database), nil
}

func buildPublisher(cfg *config.Config) (events.Publisher, func() error, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}, nil, nil
	}
	publisher, err := events.NewSaramaPublisher(cfg.KafkaBrokers)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}

// provisionDemoOrders seeds a few ready-for-delivery orders so the bidding
// flow can be exercised out of the box
func provisionDemoOrders(dir *orders.MemoryOrders) {
	dir.Provision([]model.Order{
		{OrderID: "order1", CustomerID: "customer1", Status: model.OrderReadyForDelivery, TotalPrice: decimal.NewFromFloat(42.50)},
		{OrderID: "order2", CustomerID: "customer2", Status: model.OrderReadyForDelivery, TotalPrice: decimal.NewFromFloat(18.99)},
		{OrderID: "order3", CustomerID: "customer1", Status: model.OrderReadyForDelivery, TotalPrice: decimal.NewFromFloat(63.25)},
	})
}
