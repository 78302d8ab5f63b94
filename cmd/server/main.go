package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/auth"
	"github.com/raywall/broadband-plan-service/pkg/broadband"
	"github.com/raywall/broadband-plan-service/pkg/cache"
	"github.com/raywall/broadband-plan-service/pkg/config"
	"github.com/raywall/broadband-plan-service/pkg/logger"
	"github.com/raywall/broadband-plan-service/pkg/mapper"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/raywall/broadband-plan-service/pkg/observability"
	"github.com/raywall/broadband-plan-service/pkg/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	configPath string
	// Variáveis injetáveis para mocking
	serverStarter = transport.StartHTTPServer
	lambdaStarter = lambda.Start
	loadAWSConfig = config.AWS
)

func init() {
	configPath = os.Getenv("CONFIG_FILE_PATH")
}

func main() {
	if configPath == "" {
		log.Fatal().Msg("CONFIG_FILE_PATH não informado")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath); err != nil {
		log.Fatal().Err(err).Msg("falha na execução do serviço")
	}
}

// run contém a lógica principal testável
func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(ctx, cfgPath)
	if err != nil {
		return err
	}

	logger.Configure(cfg.Service.Logging, cfg.Service.Name)

	provider, err := observability.SetupMetrics(cfg.Service.Metrics, cfg.Service.Name)
	if err != nil {
		return err
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	plans, connections, err := newStores(ctx, cfg.DynamoDB)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pingRedis(ctx, rdb)

	planCache := cache.New(rdb, cache.Options{
		TTL:                 cfg.Redis.TTL,
		PlanNamespace:       cfg.Redis.PlanNamespace,
		ConnectionNamespace: cfg.Redis.ConnectionNamespace,
	})

	svc := broadband.NewService(plans, connections, planCache, broadband.Options{
		ExtendedFilters: cfg.Plans.ExtendedFilters,
		Metrics:         provider,
	})

	authClient := auth.NewClient(auth.Config{
		BaseURL:  cfg.Auth.BaseURL,
		Attempts: cfg.Auth.Attempts,
		Backoff:  cfg.Auth.Backoff,
		Timeout:  cfg.Auth.Timeout,
	}, nil)

	router := transport.NewRouter(svc, authClient, transport.RouterOptions{
		Route:   cfg.Service.Route,
		Timeout: cfg.Service.GetTimeout(),
		Metrics: provider,
	})

	switch cfg.Service.Runtime {
	case "local", "ec2", "ecs", "eks":
		if cfg.Invalidation.QueueURL != "" {
			listener, err := newListener(ctx, cfg, planCache, provider)
			if err != nil {
				return err
			}
			go listener.Start(ctx)
		}
		return serverStarter(ctx, cfg.Service, router)
	case "lambda":
		// fila chega como trigger SQS; o listener só executa a invalidação
		listener := transport.NewInvalidationListener(nil, "", 0, planCache, provider)
		handler := transport.NewLambdaHandler(router, listener)
		lambdaStarter(handler.Invoke)
		return nil
	default:
		return fmt.Errorf("runtime desconhecido: %s", cfg.Service.Runtime)
	}
}

func newStores(ctx context.Context, cfg config.DynamoDBConf) (dyndb.Store[models.Plan], dyndb.Store[models.Connection], error) {
	planTable := mapper.PlanTable(cfg.PlanTable)
	connTable := mapper.ConnectionTable(cfg.ConnectionTable)

	if cfg.Driver == "memory" {
		log.Warn().Msg("DynamoDB em memória: dados não são persistidos")
		return dyndb.NewMemory(planTable), dyndb.NewMemory(connTable), nil
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.Region)
	if err != nil {
		return nil, nil, fmt.Errorf("falha carregando credenciais AWS: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return dyndb.New(client, planTable), dyndb.New(client, connTable), nil
}

func newListener(ctx context.Context, cfg *config.ServiceConfig, inv transport.Invalidator, p metrics.Provider) (*transport.InvalidationListener, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.DynamoDB.Region)
	if err != nil {
		return nil, fmt.Errorf("falha carregando credenciais AWS: %w", err)
	}
	client := sqs.NewFromConfig(awsCfg)
	return transport.NewInvalidationListener(client, cfg.Invalidation.QueueURL, cfg.Invalidation.WaitTimeSeconds, inv, p), nil
}

// pingRedis só registra o estado. Falhas do cache aparecem por requisição.
func pingRedis(ctx context.Context, rdb *redis.Client) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", rdb.Options().Addr).Msg("Redis indisponível no boot")
		return
	}
	log.Info().Str("addr", rdb.Options().Addr).Msg("Redis conectado")
}
