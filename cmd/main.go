package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/gridnode.net/internal/adapter/etcd"
	"gitlab.com/gridnode.net/internal/adapter/logging"
	"gitlab.com/gridnode.net/internal/adapter/postgres/auditlog"
	"gitlab.com/gridnode.net/internal/adapter/redis/signalrelay"
	"gitlab.com/gridnode.net/internal/adapter/redis/workerport"
	"gitlab.com/gridnode.net/internal/config"
	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/services/admission"
	"gitlab.com/gridnode.net/internal/core/services/workerpool"
	"gitlab.com/gridnode.net/internal/domain"
	logger2 "gitlab.com/gridnode.net/internal/global/logger"
	http2 "gitlab.com/gridnode.net/internal/http"
	"gitlab.com/gridnode.net/internal/rpc"
	"gitlab.com/gridnode.net/internal/tcp"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting node manager")

	logger := logger2.Logger

	sysCfg := config.NewSystemConfig()
	nodeCfg := sysCfg.NodeConfig

	db, err := setupDatabase(sysCfg)
	if err != nil {
		panic(err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password, // no password set
		DB:       sysCfg.RedisConfig.DB,       // use default DB
	})

	clusterStore, err := etcd.NewClusterStore(sysCfg.EtcdConfig.Endpoints, nodeCfg.NodeLeaseTTLSec, logger)
	if err != nil {
		panic(err)
	}

	// SECONDARY PORTS
	stateMirror := workerport.NewWorkerStateStore(redisClient, logger)
	auditJournal := auditlog.NewAuditLog(db, logger)
	signalRelay := signalrelay.NewSignalRelay(redisClient, logger)

	// SERVICES
	admissionSvc := admission.NewAdmissionService(nodeCapacity(nodeCfg), logger)
	callManager := rpc.NewCallManager(logger)
	workerPool := workerpool.NewWorkerPoolService(
		nodeCfg.NodeID,
		nodeCfg.Host,
		admissionSvc,
		callManager,
		stateMirror,
		auditJournal,
		signalRelay,
		logger,
	)
	serviceProvider := http2.NewServiceProvider(workerPool, auditJournal, signalRelay)

	// SERVERS
	tcpServer := tcp.NewTCPServer(workerPool, logging.NewZapLogger(sysCfg.DebugMode), tcp.WithAddress(fmt.Sprintf(":%d", nodeCfg.TCPPort)))
	httpServer := http2.NewServer(nodeCfg.HTTPPort, "nodeManager", *serviceProvider, sysCfg.JwtConfig, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}

	ctxBg := context.Background()
	httpServer.Start(ctxBg)
	tcpServer.Start()

	publishCtx, stopPublishing := context.WithCancel(ctxBg)
	go publishNodeState(publishCtx, workerPool, clusterStore, nodeCfg.StatePublishInterval, logger)

	<-quit
	logger.Info("Shutting down node manager...")

	stopPublishing()

	ctx, cancel := context.WithTimeout(ctxBg, 5*time.Second)
	defer cancel()
	tcpServer.Stop(ctx)
	httpServer.Stop()

	callManager.Close()
	if err := clusterStore.Close(); err != nil {
		logger.Warn("Failed to close cluster store", "error", err)
	}
	redisClient.Close()
	db.Close()

	logger.Info("successfully shutdown node manager")
}

// nodeCapacity translates the configured hardware into the admission pool's
// capacity map.
func nodeCapacity(cfg *config.NodeConfig) map[string]float64 {
	capacity := map[string]float64{
		domain.ResourceCPU:    cfg.NumCPUs,
		domain.ResourceMemory: cfg.MemoryBytes,
	}
	if cfg.NumGPUs > 0 {
		capacity[domain.ResourceGPU] = cfg.NumGPUs
	}
	return capacity
}

// publishNodeState periodically announces resource availability to the
// cluster store until ctx is cancelled.
func publishNodeState(ctx context.Context, workerPool workerpool.IWorkerPoolService, clusterStore *etcd.ClusterStore, interval time.Duration, logger primary.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := clusterStore.PublishNodeState(ctx, workerPool.NodeState(ctx)); err != nil {
				logger.Error("Failed to publish node state", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.AppConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.PostgresConfig.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
