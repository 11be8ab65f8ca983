package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	cronadapter "github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/in/cron"
	grpcadapter "github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/in/grpc"
	httpadapter "github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/in/http"
	memoryadapter "github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/out/memory"
	mysqladapter "github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/internal/app/metrics"
	"github.com/JoeShih716/go-bank-clients/internal/config"
	"github.com/JoeShih716/go-bank-clients/pkg/auth"
	"github.com/JoeShih716/go-bank-clients/pkg/logger"
	"github.com/JoeShih716/go-bank-clients/pkg/mysql"
	"github.com/JoeShih716/go-bank-clients/pkg/wal"
)

// store 兩種儲存層共同實作的 ports
type store interface {
	usecase.ClientRepository
	usecase.AccountRepository
	usecase.UnitOfWork
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config file")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
	zl.Info("server exited")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. 初始化儲存層
	repo, closeStore, err := openStore(cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. 初始化 UseCase
	issuer, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL, auth.WithIssuerName(cfg.JWT.Issuer))
	if err != nil {
		return fmt.Errorf("init jwt issuer: %w", err)
	}
	clients := usecase.NewClientUseCase(repo, zl)
	ledger := usecase.NewLedgerUseCase(repo, repo, repo, zl)
	authUC := usecase.NewAuthUseCase(repo, issuer, zl)

	policy := usecase.AccrualPolicy{Factor: cfg.Accrual.Factor, CeilingFactor: cfg.Accrual.CeilingFactor}
	if err := policy.Validate(); err != nil {
		return err
	}
	accrual := usecase.NewAccrual(repo, repo, policy, zl)

	// 4. 啟動時掃描一次所有帳戶，固定計息上限
	if err := accrual.Prime(ctx); err != nil {
		return err
	}
	zl.Info("accrual ceilings primed", zap.Int("accounts", accrual.Ceilings().Len()))

	// 5. 綁定 port，必須在啟動排程之前
	httpLis, grpcLis, err := listen(cfg.Server.HTTPAddr, cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	// 6. 排程
	var scheduler *cronadapter.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = cronadapter.NewScheduler(accrual, cfg.Scheduler.Interval, zl,
			cronadapter.WithRunTimeout(cfg.Scheduler.RunTimeout))
		if err != nil {
			_ = httpLis.Close()
			_ = grpcLis.Close()
			return err
		}
		scheduler.Start()
	}

	// 7. HTTP 與 gRPC Driving Adapters
	httpServer := &http.Server{
		Handler:           httpadapter.NewHandler(clients, ledger, authUC, issuer, zl).Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		metrics.UnaryServerInterceptor(),
		grpcadapter.AuthInterceptor(issuer),
	))
	grpcadapter.RegisterLedgerServer(grpcServer, grpcadapter.NewGrpcServer(usecase.NewCoreUseCase(ledger, authUC)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("starting http server", zap.String("addr", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		zl.Info("starting grpc server", zap.String("addr", grpcLis.Addr().String()))
		if err := grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if scheduler != nil {
			errs = append(errs, scheduler.Stop(shutdownCtx))
		}
		errs = append(errs, httpServer.Shutdown(shutdownCtx))
		grpcServer.GracefulStop()
		return errors.Join(errs...)
	})
	return g.Wait()
}

// listen 綁定 HTTP 與 gRPC 的 port，任一失敗時關閉已開啟的 listener
func listen(httpAddr, grpcAddr string) (net.Listener, net.Listener, error) {
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen http: %w", err)
	}
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpLis.Close()
		return nil, nil, fmt.Errorf("listen grpc: %w", err)
	}
	return httpLis, grpcLis, nil
}

// openStore 依設定選擇 MySQL 或記憶體 (WAL) 儲存層
func openStore(cfg *config.Config, zl *zap.Logger) (store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMySQL:
		client, err := mysql.NewClient(cfg.MySQL, zl)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		s := mysqladapter.NewStore(client, zl, mysqladapter.WithTxRetries(cfg.MySQL.TxRetries, cfg.MySQL.TxRetryBackoff))
		if cfg.MySQL.AutoMigrate {
			if err := s.Migrate(); err != nil {
				_ = client.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		zl.Info("using mysql storage", zap.String("host", cfg.MySQL.Host), zap.String("db", cfg.MySQL.DBName))
		return s, func() { _ = client.Close() }, nil

	case config.DriverMemory:
		w, err := wal.Open(cfg.Storage.WALPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open wal: %w", err)
		}
		s, err := memoryadapter.NewStore(w, memoryadapter.WithMode(memoryadapter.Mode(cfg.Storage.MemoryMode)))
		if err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("init memory store: %w", err)
		}
		zl.Info("using memory storage",
			zap.String("wal", cfg.Storage.WALPath),
			zap.String("mode", cfg.Storage.MemoryMode),
			zap.Int("replayed_entries", w.Entries()),
		)
		return s, func() {
			s.Close()
			_ = w.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
