package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/gomarket-cart/internal/adapter/codec"
	"github.com/rl1809/gomarket-cart/internal/adapter/storage"
	"github.com/rl1809/gomarket-cart/internal/core/domain"
	"github.com/rl1809/gomarket-cart/internal/core/service"
	"github.com/rl1809/gomarket-cart/internal/port"
)

const (
	snapshotKey   = "stress:cart"
	productCount  = 20
	totalClients  = 50
	opsPerClient  = 200
	writerWorkers = 4
	queueSize     = 16
)

func main() {
	redisAddr := flag.String("redis", "", "redis address, in-memory storage when empty")
	flag.Parse()

	ctx := context.Background()

	var repo port.KeyValueRepository = storage.NewMemoryAdapter()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()

		// Clear previous test data
		rdb.Del(ctx, snapshotKey)
		repo = storage.NewRedisAdapter(rdb)
	}

	store, err := service.Open(ctx, repo, codec.NewJSONCodec(),
		service.WithKey(snapshotKey),
		service.WithWriterConfig(service.WriterConfig{Workers: writerWorkers, QueueSize: queueSize}),
	)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	// Every client adds each product once and then does balanced increment/decrement
	// pairs, so every product must end at quantity totalClients.
	var opsCount atomic.Int64
	var errCount atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()

	for c := 0; c < totalClients; c++ {
		wg.Add(1)
		go func(client int) {
			defer wg.Done()

			for i := 0; i < productCount; i++ {
				if err := store.AddToCart(product(i)); err != nil {
					errCount.Add(1)
				}
				opsCount.Add(1)
			}
			for i := 0; i < opsPerClient; i++ {
				id := product((client + i) % productCount).ID
				if err := store.Increment(id); err != nil {
					errCount.Add(1)
				}
				if err := store.Decrement(id); err != nil {
					errCount.Add(1)
				}
				opsCount.Add(2)
			}
		}(c)
	}

	wg.Wait()
	elapsed := time.Since(start)

	inMemory, _ := store.Products()
	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		log.Fatalf("failed to flush store: %v", err)
	}
	stats := store.Stats()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Clients:          %d\n", totalClients)
	fmt.Printf("Operations:       %d\n", opsCount.Load())
	fmt.Printf("Errors:           %d\n", errCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Snapshots:        written=%d stale=%d dropped=%d failed=%d\n",
		stats.Written, stats.Stale, stats.Dropped, stats.Failed)
	fmt.Println("==========================================")

	failed := false

	// Assertions
	if len(inMemory) != productCount {
		fmt.Printf("FAIL: Expected %d cart lines, got %d\n", productCount, len(inMemory))
		failed = true
	}
	for _, item := range inMemory {
		if item.Quantity != totalClients {
			fmt.Printf("FAIL: %s expected quantity %d, got %d\n", item.ID, totalClients, item.Quantity)
			failed = true
		}
	}

	// Verify the durable snapshot matches the in-memory cart
	reopened, err := service.Open(ctx, repo, codec.NewJSONCodec(), service.WithKey(snapshotKey))
	if err != nil {
		log.Fatalf("failed to reopen store: %v", err)
	}
	restored, _ := reopened.Products()
	reopened.Close(ctx)

	if sameCart(inMemory, restored) {
		fmt.Println("PASS: Reloaded cart matches in-memory cart")
	} else {
		fmt.Println("FAIL: Reloaded cart differs from in-memory cart")
		failed = true
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("PASS: All cart invariants held")
}

func product(i int) domain.Product {
	return domain.Product{
		ID:       fmt.Sprintf("product-%02d", i),
		Title:    fmt.Sprintf("Product %d", i),
		ImageURL: fmt.Sprintf("https://cdn.gomarket.local/%d.png", i),
		Price:    decimal.NewFromInt(int64(i)).Add(decimal.RequireFromString("0.99")),
	}
}

func sameCart(a, b []domain.CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Quantity != b[i].Quantity || !a[i].Price.Equal(b[i].Price) {
			return false
		}
	}
	return true
}
