package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/handler"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/infra/db"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/infra/lock"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/infra/memstore"
	infraRepo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/infra/repository"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/logger"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/server"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// storeはバックエンドごとのTxと参照用Repository
type store struct {
	tx    repo.TransactionManager
	reads repo.TxRepos
	close func()
}

func main() {
	//.envは無くてもよい（コンテナでは環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer st.close()

	//Coordinator生成
	opts := []usecase.CoordinatorOption{usecase.WithStrictReconcile(cfg.StrictReconcile)}
	if cfg.LockBackend == config.LockBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		opts = append(opts, usecase.WithProductLocker(lock.NewRedisProductLocker(rdb, cfg.LockTimeout, log)))
	}
	coord := usecase.NewInventoryCoordinator(st.tx, log, opts...)

	//Usecase生成
	invUC := usecase.NewInventoryUsecase(coord, st.reads.Products(), st.reads.Counters())
	viewUC := usecase.NewInventoryViewUsecase(st.reads.Products(), st.reads.Counters(), st.reads.Ledger(), nil)
	saleUC := usecase.NewSaleUsecase(coord, st.reads.Sales())

	//Handler生成
	invH := handler.NewInventoryHandler(invUC, viewUC)
	saleH := handler.NewSaleHandler(saleUC)

	e := server.New(cfg, log, invH, saleH)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("env", cfg.GoEnv),
		zap.String("store", cfg.StoreBackend),
		zap.String("lock", cfg.LockBackend),
		zap.Bool("strict_reconcile", cfg.StrictReconcile),
		zap.Duration("lock_timeout", cfg.LockTimeout),
	)
	if err := server.Start(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}

func openStore(cfg config.Config, log *zap.Logger) (store, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		ms := memstore.New(cfg.LockTimeout)
		seedDemo(ms, log)
		return store{tx: ms, reads: ms, close: func() {}}, nil
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return store{}, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return store{}, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return store{}, err
	}

	//Repository（GORM実装）生成
	reads := infraRepo.NewTxRepos(gormDB)
	return store{
		tx:    infraRepo.NewTxManagerGorm(gormDB, cfg.LockTimeout),
		reads: reads,
		close: func() { _ = sqlDB.Close() },
	}, nil
}

// memoryバックエンド用のデモ商品
func seedDemo(ms *memstore.Store, log *zap.Logger) {
	demo := []model.Product{
		{ShopID: 1, SKU: "TEA-01", Name: "Green Tea", Price: 300, IsActive: true},
		{ShopID: 1, SKU: "CUP-01", Name: "Tea Cup", Price: 1200, IsActive: true},
		{ShopID: 2, SKU: "BEAN-01", Name: "Coffee Beans", Price: 1800, IsActive: true},
	}
	for _, p := range demo {
		saved := ms.SeedProduct(p)
		log.Debug("seeded product", zap.Int64("id", saved.ID), zap.Int64("shop_id", saved.ShopID), zap.String("sku", saved.SKU))
	}
}
