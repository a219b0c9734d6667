package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/guard-shifts/internal/adapters/grpc/handler"
	"github.com/ogurasousui/guard-shifts/internal/adapters/repository/postgres"
	"github.com/ogurasousui/guard-shifts/internal/adapters/telegram"
	"github.com/ogurasousui/guard-shifts/internal/core/confirmation"
	"github.com/ogurasousui/guard-shifts/internal/core/inbox"
	"github.com/ogurasousui/guard-shifts/internal/core/payroll"
	"github.com/ogurasousui/guard-shifts/internal/core/shift"
	"github.com/ogurasousui/guard-shifts/internal/platform/config"
	pg "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
	"github.com/ogurasousui/guard-shifts/internal/platform/logging"
	"github.com/ogurasousui/guard-shifts/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool)
	shiftRepo := postgres.NewShiftRepository(dbPool)
	payItemRepo := postgres.NewPayItemRepository(dbPool)
	sweepRepo := postgres.NewConfirmationSweepRepository(dbPool)

	resolver, err := payroll.NewRateResolver(cfg.Payroll.FallbackHourlyRateCents)
	if err != nil {
		return err
	}

	shiftSvc := shift.NewService(shiftRepo, nil, txManager, logger.Named("shift"))
	payrollSvc := payroll.NewService(shiftRepo, payItemRepo, resolver, nil, txManager, logger.Named("payroll"))
	inboxSvc := inbox.NewService(shiftRepo, shiftSvc, nil, cfg.Confirmation.Location, logger.Named("inbox"))

	sweeper, err := confirmation.NewSweeper(shiftRepo, confirmation.Settings{
		Hour:          cfg.Confirmation.HourOrDefault(),
		Minute:        cfg.Confirmation.Minute,
		Location:      cfg.Confirmation.Location,
		LookaheadDays: cfg.Confirmation.LookaheadDays,
	}, logger.Named("confirmation"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var sender confirmation.Sender = disabledSender{}
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.PollTimeout)
		if err != nil {
			return err
		}
		telegram.NewHandler(inboxSvc, logger.Named("telegram")).Register(bot)
		sender = telegram.NewSender(bot)
		g.Go(func() error { return telegram.Run(gctx, bot) })
	} else {
		logger.Warn("telegram token not configured, messaging channel disabled")
	}

	runner := confirmation.NewRunner(sweeper, sweepRepo, sender, logger.Named("confirmation"),
		confirmation.WithConcurrency(cfg.Confirmation.DeliveryConcurrency))
	if cfg.Confirmation.IsEnabled() {
		g.Go(func() error { return runner.Run(gctx) })
	}

	shiftHandler := handler.NewShiftGrpcHandler(shiftSvc, payrollSvc, inboxSvc, runner)
	grpcServer := server.New(cfg.Server.ListenAddr, shiftHandler, logger.Named("grpc"))
	g.Go(func() error { return grpcServer.Run(gctx) })

	return g.Wait()
}

// disabledSender はメッセージチャネルが無効な場合の配信先です。すべて失敗として数えます。
type disabledSender struct{}

func (disabledSender) Send(_ context.Context, req confirmation.Request) error {
	return fmt.Errorf("%w: messaging channel disabled (operator %s)", confirmation.ErrMissingChannelTarget, req.OperatorID)
}
