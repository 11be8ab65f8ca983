package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/status"

	grpcadapter "github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/in/grpc"
	grpcpool "github.com/JoeShih716/go-bank-clients/pkg/grpc"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	login := flag.String("login", "", "sender login")
	password := flag.String("password", "", "sender password")
	recipient := flag.Int64("recipient", 0, "recipient account id")
	amount := flag.String("amount", "0.01", "amount per transfer")
	total := flag.Int("total", 10000, "number of transfers")
	concurrency := flag.Int("concurrency", 100, "concurrent in-flight requests")
	rps := flag.Float64("rps", 0, "max requests per second (0 = unlimited)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	if *login == "" || *recipient == 0 {
		log.Fatal("-login and -recipient are required")
	}
	amt, err := decimal.NewFromString(*amount)
	if err != nil || !amt.IsPositive() {
		log.Fatalf("invalid -amount %q", *amount)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 1. 先取得 token
	anon := grpcpool.NewPool()
	conn, err := anon.GetConnection(*addr)
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	token, err := grpcadapter.NewLedgerClient(conn).Authenticate(ctx, *login, *password)
	_ = anon.Close()
	if err != nil {
		log.Fatalf("authenticate: %v", err)
	}

	// 2. 之後每個呼叫都帶上 Bearer token
	pool := grpcpool.NewPool(grpcpool.WithInterceptor(grpcadapter.BearerToken(token)))
	defer pool.Close()
	conn, err = pool.GetConnection(*addr)
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	client := grpcadapter.NewLedgerClient(conn)

	limit := rate.Inf
	if *rps > 0 {
		limit = rate.Limit(*rps)
	}
	limiter := rate.NewLimiter(limit, max(1, *concurrency))

	var (
		ok    atomic.Int64
		mu    sync.Mutex
		codes = map[string]int{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	startTime := time.Now()
	for i := 0; i < *total; i++ {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			_, err := client.Transfer(gctx, uuid.New(), *recipient, amt)
			if err == nil {
				ok.Add(1)
				return nil
			}
			mu.Lock()
			codes[status.Code(err).String()]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v (%d ok)\n", *total, elapsed, ok.Load())
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())

	names := make([]string, 0, len(codes))
	for name := range codes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %d\n", name, codes[name])
	}
}
