package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/product-verifier/internal/cfg"
	v1Grpc "github.com/DRSN-tech/product-verifier/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/product-verifier/internal/delivery/v1/http"
	"github.com/DRSN-tech/product-verifier/internal/infrastructure/embedder"
	"github.com/DRSN-tech/product-verifier/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/product-verifier/internal/infrastructure/minio"
	"github.com/DRSN-tech/product-verifier/internal/matcher"
	s3Repo "github.com/DRSN-tech/product-verifier/internal/repository/minio"
	"github.com/DRSN-tech/product-verifier/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/product-verifier/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/product-verifier/internal/repository/redis"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/clients"
	"github.com/DRSN-tech/product-verifier/pkg/closer"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/DRSN-tech/product-verifier/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	initTimeout     = 10 * time.Second
	shutdownTimeout = 15 * time.Second
	topicTimeout    = 10 * time.Second
)

// App собирает зависимости сервиса и управляет его жизненным циклом.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	// отменяется при завершении, прерывает фоновые операции (cleanup MinIO, outbox worker)
	rootCtx    context.Context
	rootCancel context.CancelFunc

	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
	worker  *kafka.OutboxWorker
}

// NewApp инициализирует все компоненты. При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	a := &App{
		cfg:        cfg,
		logger:     log,
		closer:     closer.NewCloser(0, log),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}

	if err := a.init(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := a.closer.Close(ctx); closeErr != nil {
			log.Warnf("cleanup after failed init: %v", closeErr)
		}
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return a, nil
}

func (a *App) init() error {
	ctx, cancel := context.WithTimeout(a.rootCtx, initTimeout)
	defer cancel()

	model, err := embedder.Load(a.rootCtx, a.cfg.Model, a.logger)
	if err != nil {
		return err
	}
	a.closer.Add("onnxruntime", func(context.Context) error { return embedder.DestroyRuntime() })
	a.closer.Add("embedding model", func(context.Context) error { return model.Close() })

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		return fmt.Errorf("failed to initialize minio client: %w", err)
	}
	if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
		return fmt.Errorf("failed to initialize MinIO bucket: %w", err)
	}

	imageRepo := s3Repo.NewImageRepo(minioClient, a.cfg.Minio)
	imagesInfra := minioInfra.NewMinioInfrastructure(imageRepo, a.cfg.Minio, a.logger, a.rootCtx)

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	cacheRepo := redis.NewCacheRepo(redisClient, a.cfg.Redis, a.logger)

	audit, err := a.initAudit(ctx)
	if err != nil {
		return err
	}

	verificationUC := usecase.NewVerificationUseCase(
		model,
		matcher.NewMatcher(a.cfg.Matcher.Threshold),
		imagesInfra,
		imageRepo,
		cacheRepo,
		audit,
		a.logger,
	)

	// фоновые удаления MinIO дожидаются остановки серверов
	a.closer.Add("minio cleanup", imagesInfra.WaitForCleanup)

	a.grpcSrv = v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)
	a.grpcSrv.RegisterServices(verificationUC)
	a.closer.Add("gRPC server", a.grpcSrv.Stop)

	r := chi.NewRouter()
	v1Http.NewRouter(r, a.logger).Init(verificationUC)
	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)
	a.closer.Add("HTTP server", a.httpSrv.Stop)

	a.logger.Infof("matcher threshold %.3f, model %s", a.cfg.Matcher.Threshold, model.ModelVersion())
	return nil
}

// initAudit подключает PostgreSQL и outbox. Без POSTGRES_DB проверки не сохраняются.
func (a *App) initAudit(ctx context.Context) (usecase.AuditRecorder, error) {
	if a.cfg.Db == nil {
		a.logger.Warnf("POSTGRES_DB is not set, verification audit is disabled")
		return usecase.NopAudit{}, nil
	}

	db, err := initPGDB(ctx, a.logger, a.cfg)
	if err != nil {
		return nil, err
	}
	a.closer.AddFunc("postgres", db.Close)

	verificationRepo := pgdb.NewVerificationRepo(db.Pool, pgdbConv.VerificationConverter{Bucket: a.cfg.Minio.BucketName})
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})

	var producer usecase.MessageProducer
	if a.cfg.Kafka != nil {
		kafkaProducer := kafka.NewProducer(a.logger, a.cfg.Kafka)
		if err := kafkaProducer.EnsureTopic(topicTimeout); err != nil {
			kafkaProducer.Close()
			return nil, fmt.Errorf("failed to ensure kafka topic: %w", err)
		}
		a.closer.Add("kafka producer", func(context.Context) error { return kafkaProducer.Close() })
		producer = kafkaProducer
	} else {
		a.logger.Warnf("KAFKA_BROKERS is not set, verification events go to the log")
		producer = kafka.NewLogProducer(a.logger)
	}

	a.worker = kafka.NewOutboxWorker(outboxRepo, a.logger, producer, db.Dsn)
	a.closer.AddFunc("outbox worker", a.worker.Stop)

	return usecase.NewAudit(db.Pool, verificationRepo, outboxRepo, a.logger), nil
}

// Run запускает серверы и блокируется до сигнала завершения или падения одного из серверов.
func (a *App) Run() error {
	defer a.rootCancel()

	if a.worker != nil {
		a.worker.Start(a.rootCtx)
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "server fatal error")
	case sig := <-shutdown:
		a.logger.Infof("received %s, stopping gracefully...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown")
		if appErr == nil {
			appErr = err
		}
	}

	a.logger.Infof("application shutdown complete")
	return appErr
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
