package config

import "time"

// ServiceConfig representa a estrutura raiz do arquivo YAML do serviço.
type ServiceConfig struct {
	Version      string           `yaml:"version" validate:"required"`
	Service      ServiceDetails   `yaml:"service" validate:"required"`
	DynamoDB     DynamoDBConf     `yaml:"dynamodb" validate:"required"`
	Redis        RedisConf        `yaml:"redis" validate:"required"`
	Auth         AuthConf         `yaml:"auth" validate:"required"`
	Plans        PlansConf        `yaml:"plans"`
	Invalidation InvalidationConf `yaml:"invalidation"`
}

// ServiceDetails contém os metadados e configurações de runtime do serviço.
type ServiceDetails struct {
	Name    string      `yaml:"name" validate:"required,hostname_rfc1123"`
	Runtime string      `yaml:"runtime" env:"SERVICE_RUNTIME" validate:"required,oneof=local lambda ecs eks ec2"`
	Port    int         `yaml:"port" env:"PORT" validate:"required_if=Runtime local"` // Obrigatório apenas se local
	Route   string      `yaml:"route" validate:"required,startswith=/"`
	Timeout string      `yaml:"timeout" validate:"required"` // Ex: "500ms", "2s"
	Logging LoggingConf `yaml:"logging"`
	Metrics MetricsConf `yaml:"metrics"`
}

type LoggingConf struct {
	Enabled bool   `yaml:"enabled" env:"LOG_ENABLED"`
	Level   string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf `yaml:"datadog"`
}

type DatadogConf struct {
	Enabled   bool     `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string   `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags" env:"DD_TAGS"`
}

// DynamoDBConf define as duas tabelas. Driver "memory" roda sem AWS.
type DynamoDBConf struct {
	Driver          string `yaml:"driver" env:"DYNAMODB_DRIVER" validate:"oneof=dynamodb memory"`
	Region          string `yaml:"region" env:"AWS_REGION"`
	Endpoint        string `yaml:"endpoint" env:"DYNAMODB_ENDPOINT" validate:"omitempty,url"`
	PlanTable       string `yaml:"plan_table" env:"DYNAMODB_PLAN_TABLE" validate:"required"`
	ConnectionTable string `yaml:"connection_table" env:"DYNAMODB_CONNECTION_TABLE" validate:"required"`
}

type RedisConf struct {
	Addr                string        `yaml:"addr" env:"REDIS_ADDR" validate:"required,hostname_port"`
	Password            string        `yaml:"password" env:"REDIS_PASSWORD"` // aceita ${secret.id#campo}
	DB                  int           `yaml:"db" env:"REDIS_DB" validate:"gte=0,lte=15"`
	TTL                 time.Duration `yaml:"ttl" env:"REDIS_TTL" validate:"gte=0"`
	PlanNamespace       string        `yaml:"plan_namespace"`
	ConnectionNamespace string        `yaml:"connection_namespace"`
}

// AuthConf aponta para o serviço externo que valida o token.
type AuthConf struct {
	BaseURL  string        `yaml:"base_url" env:"AUTH_BASE_URL" validate:"required,url"` // aceita ${ssm./path}
	Attempts int           `yaml:"attempts" validate:"gte=1,lte=10"`
	Backoff  time.Duration `yaml:"backoff" validate:"gte=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

type PlansConf struct {
	// ExtendedFilters aplica também category e data na Query de partição.
	ExtendedFilters bool `yaml:"extended_filters" env:"PLANS_EXTENDED_FILTERS"`
}

type InvalidationConf struct {
	QueueURL        string `yaml:"queue_url" env:"INVALIDATION_QUEUE_URL" validate:"omitempty,url"`
	WaitTimeSeconds int32  `yaml:"wait_time_seconds" validate:"gte=0,lte=20"`
}

// Valores padrão aplicados antes da validação.
const (
	DefaultRoute       = "/api/v2/broadband"
	DefaultTimeout     = "30s"
	DefaultAttempts    = 3
	DefaultBackoff     = time.Second
	DefaultAuthTimeout = 5 * time.Second
)

func (s ServiceDetails) GetTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ApplyDefaults preenche os campos opcionais não informados no YAML.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Service.Route == "" {
		c.Service.Route = DefaultRoute
	}
	if c.Service.Timeout == "" {
		c.Service.Timeout = DefaultTimeout
	}
	if c.Service.Logging.Level == "" {
		c.Service.Logging.Level = "info"
	}
	if c.Service.Logging.Format == "" {
		c.Service.Logging.Format = "json"
	}
	if c.DynamoDB.Driver == "" {
		c.DynamoDB.Driver = "dynamodb"
	}
	if c.Auth.Attempts == 0 {
		c.Auth.Attempts = DefaultAttempts
	}
	if c.Auth.Backoff == 0 {
		c.Auth.Backoff = DefaultBackoff
	}
	if c.Auth.Timeout == 0 {
		c.Auth.Timeout = DefaultAuthTimeout
	}
	if c.Invalidation.WaitTimeSeconds == 0 {
		c.Invalidation.WaitTimeSeconds = 20
	}
}
