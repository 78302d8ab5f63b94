package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/raywall/broadband-plan-service/envloader"
	"github.com/raywall/broadband-plan-service/pkg/config/injector"
	"gopkg.in/yaml.v3"
)

// --- Interfaces para Mocking ---

type S3Downloader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type DynamoGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// UniversalLoader lê a configuração de um arquivo local, s3://bucket/key ou
// dynamodb://tabela/chave, aplica variáveis de ambiente, resolve referências
// ${ssm...} e ${secret...}, completa os defaults e valida.
//
// Clientes nil são criados sob demanda a partir da configuração AWS padrão.
type UniversalLoader struct {
	Region  string
	S3      S3Downloader
	Dynamo  DynamoGetter
	SSM     injector.SSMClient
	Secrets injector.SecretsClient

	validator *ConfigValidator
}

func NewUniversalLoader(region string) *UniversalLoader {
	return &UniversalLoader{
		Region:    region,
		validator: NewValidator(),
	}
}

// Load é o atalho usado pelo cmd/server.
func Load(ctx context.Context, source string) (*ServiceConfig, error) {
	return NewUniversalLoader(os.Getenv("AWS_REGION")).Load(ctx, source)
}

// Load detecta o esquema da fonte e carrega a configuração.
func (ul *UniversalLoader) Load(ctx context.Context, source string) (*ServiceConfig, error) {
	var rawData []byte
	var err error

	switch {
	case strings.HasPrefix(source, "s3://"):
		if err = ul.ensureS3(ctx); err == nil {
			rawData, err = ul.loadFromS3(ctx, source)
		}
	case strings.HasPrefix(source, "dynamodb://"):
		if err = ul.ensureDynamo(ctx); err == nil {
			rawData, err = ul.loadFromDynamoDB(ctx, source)
		}
	default:
		rawData, err = ul.loadFromFile(source)
	}

	if err != nil {
		return nil, fmt.Errorf("falha leitura config (%s): %w", source, err)
	}

	return ul.Parse(ctx, rawData)
}

// Parse executa YAML, env, injeção, defaults e validação, nessa ordem.
func (ul *UniversalLoader) Parse(ctx context.Context, data []byte) (*ServiceConfig, error) {
	var cfg ServiceConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("YAML malformado: %w", err)
	}

	if err := envloader.Load(&cfg); err != nil {
		return nil, fmt.Errorf("falha ao aplicar variáveis de ambiente: %w", err)
	}

	if err := ul.ensureInjectorClients(ctx, &cfg, data); err != nil {
		return nil, err
	}
	if err := injector.New(ul.SSM, ul.Secrets).Inject(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("falha na injeção de variáveis: %w", err)
	}

	cfg.ApplyDefaults()

	validator := ul.validator
	if validator == nil {
		validator = NewValidator()
	}
	if err := validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validação da configuração falhou: %w", err)
	}

	return &cfg, nil
}

func (ul *UniversalLoader) loadFromFile(path string) ([]byte, error) {
	// Suporta tanto "file://config.yaml" quanto apenas "config.yaml"
	return os.ReadFile(strings.TrimPrefix(path, "file://"))
}

func (ul *UniversalLoader) loadFromS3(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL S3 inválida: %w", err)
	}

	out, err := ul.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// loadFromDynamoDB aceita dynamodb://tabela/chave?col=config&pk=id
func (ul *UniversalLoader) loadFromDynamoDB(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL DynamoDB inválida: %w", err)
	}

	colName := u.Query().Get("col")
	if colName == "" {
		colName = "config"
	}
	pkName := u.Query().Get("pk")
	if pkName == "" {
		pkName = "id"
	}

	out, err := ul.Dynamo.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(u.Host),
		Key: map[string]types.AttributeValue{
			pkName: &types.AttributeValueMemberS{Value: strings.TrimPrefix(u.Path, "/")},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("item não encontrado no DynamoDB")
	}

	var content string
	av, ok := out.Item[colName]
	if !ok {
		return nil, fmt.Errorf("coluna '%s' inválida ou vazia no DynamoDB", colName)
	}
	if err := attributevalue.Unmarshal(av, &content); err != nil || content == "" {
		return nil, fmt.Errorf("coluna '%s' inválida ou vazia no DynamoDB", colName)
	}

	return []byte(content), nil
}

func (ul *UniversalLoader) ensureS3(ctx context.Context) error {
	if ul.S3 != nil {
		return nil
	}
	cfg, err := AWS(ctx, ul.Region)
	if err != nil {
		return err
	}
	ul.S3 = s3.NewFromConfig(cfg)
	return nil
}

func (ul *UniversalLoader) ensureDynamo(ctx context.Context) error {
	if ul.Dynamo != nil {
		return nil
	}
	cfg, err := AWS(ctx, ul.Region)
	if err != nil {
		return err
	}
	ul.Dynamo = dynamodb.NewFromConfig(cfg)
	return nil
}

// ensureInjectorClients só cria clientes SSM/Secrets quando o documento
// ou o ambiente referenciam essas fontes.
func (ul *UniversalLoader) ensureInjectorClients(ctx context.Context, cfg *ServiceConfig, raw []byte) error {
	needSSM := ul.SSM == nil && references(cfg, raw, "${ssm.")
	needSecrets := ul.Secrets == nil && references(cfg, raw, "${secret.")
	if !needSSM && !needSecrets {
		return nil
	}

	region := ul.Region
	if region == "" {
		region = cfg.DynamoDB.Region
	}
	awsCfg, err := AWS(ctx, region)
	if err != nil {
		return fmt.Errorf("falha ao carregar configuração AWS: %w", err)
	}
	if needSSM {
		ul.SSM = ssm.NewFromConfig(awsCfg)
	}
	if needSecrets {
		ul.Secrets = secretsmanager.NewFromConfig(awsCfg)
	}
	return nil
}

func references(cfg *ServiceConfig, raw []byte, prefix string) bool {
	if bytes.Contains(raw, []byte(prefix)) {
		return true
	}
	// valores vindos do ambiente também podem conter referências
	return strings.Contains(cfg.Redis.Password, prefix) || strings.Contains(cfg.Auth.BaseURL, prefix)
}
