package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ecshop/internal/config"
	"ecshop/internal/handler"
	"ecshop/internal/infra/cache"
	"ecshop/internal/infra/db"
	infraRepo "ecshop/internal/infra/repository"
	"ecshop/internal/server"
	"ecshop/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := server.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//商品一覧キャッシュ（REDIS_ADDRが無ければ使わない）
	var productCache usecase.ProductListCache = cache.NopProductCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis ping failed, product cache may miss", zap.Error(err))
		}
		productCache = cache.NewRedisProductCache(rdb, cfg.ProductCacheTTL)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartItemGormRepository(gormDB)
	discountRepo := infraRepo.NewDiscountGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	notificationRepo := infraRepo.NewNotificationGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	catalogUC := usecase.NewCatalogUsecase(productRepo, productCache, log)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo, log)
	discountUC := usecase.NewDiscountUsecase(discountRepo, productRepo, log)
	notificationUC := usecase.NewNotificationUsecase(notificationRepo, log)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, discountUC, notificationUC, usecase.OrderOptions{
		NumberPrefix: cfg.OrderNumberPrefix,
		Tolerance:    cfg.TotalTolerance,
	}, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, log)

	//Handler生成
	e := server.New(cfg, log, userRepo, server.Handlers{
		Products:      handler.NewProductHandler(catalogUC),
		Cart:          handler.NewCartHandler(cartUC),
		Discounts:     handler.NewDiscountHandler(discountUC),
		Orders:        handler.NewOrderHandler(orderUC),
		AdminOrders:   handler.NewAdminOrderHandler(orderUC, adminOrderUC),
		Notifications: handler.NewNotificationHandler(notificationUC),
	})

	return server.Start(ctx, e, ":"+cfg.Port, log)
}
