package injector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Regex para capturar padrões ${tipo.chave}
// Ex: ${env.REDIS_ADDR}, ${ssm./broadband/auth/base_url}, ${secret.prod/redis#password}
var pattern = regexp.MustCompile(`\$\{(env|ssm|secret)\.([^}]+)\}`)

// ErrSourceNotConfigured indica referência a ssm/secret sem cliente AWS.
var ErrSourceNotConfigured = errors.New("injector: fonte não configurada")

// Interfaces para abstrair o SDK da AWS (Permite Mocking)
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Injector struct {
	ssm     SSMClient
	secrets SecretsClient
}

// New recebe os clientes AWS; qualquer um pode ser nil quando a configuração
// não usa aquela fonte.
func New(ssmClient SSMClient, secretsClient SecretsClient) *Injector {
	return &Injector{ssm: ssmClient, secrets: secretsClient}
}

// Inject percorre a struct e substitui as referências ${...} em todos os
// campos string, inclusive em slices, ponteiros e mapas de string.
func (i *Injector) Inject(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target deve ser um ponteiro para struct não nulo")
	}
	r := &resolution{Injector: i, seen: map[string]string{}}
	return r.injectRecursive(ctx, v.Elem())
}

// resolution guarda os valores já buscados durante um Inject.
type resolution struct {
	*Injector
	seen map[string]string
}

func (r *resolution) injectRecursive(ctx context.Context, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Struct:
		for k := 0; k < v.NumField(); k++ {
			if !v.Type().Field(k).IsExported() {
				continue
			}
			if err := r.injectRecursive(ctx, v.Field(k)); err != nil {
				return fmt.Errorf("%s: %w", v.Type().Field(k).Name, err)
			}
		}

	case reflect.String:
		if !v.CanSet() {
			return nil
		}
		newValue, err := r.interpolateString(ctx, v.String())
		if err != nil {
			return err
		}
		v.SetString(newValue)

	case reflect.Ptr:
		if !v.IsNil() {
			return r.injectRecursive(ctx, v.Elem())
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			if err := r.injectRecursive(ctx, v.Index(j)); err != nil {
				return err
			}
		}

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		iter := v.MapRange()
		updates := map[string]string{}
		for iter.Next() {
			newVal, err := r.interpolateString(ctx, iter.Value().String())
			if err != nil {
				return err
			}
			updates[iter.Key().String()] = newVal
		}
		for k, val := range updates {
			v.SetMapIndex(reflect.ValueOf(k).Convert(v.Type().Key()), reflect.ValueOf(val).Convert(v.Type().Elem()))
		}
	}
	return nil
}

// interpolateString realiza a substituição baseada em Regex
func (r *resolution) interpolateString(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var err error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		if err != nil {
			return match
		}
		if val, ok := r.seen[match]; ok {
			return val
		}

		sub := pattern.FindStringSubmatch(match)
		val, resolveErr := r.fetchValue(ctx, sub[1], sub[2])
		if resolveErr != nil {
			err = resolveErr
			return match
		}
		r.seen[match] = val
		return val
	})

	return result, err
}

func (i *Injector) fetchValue(ctx context.Context, sourceType, key string) (string, error) {
	switch sourceType {
	case "env":
		// variável não encontrada vira vazio
		return os.Getenv(key), nil

	case "ssm":
		if i.ssm == nil {
			return "", fmt.Errorf("%w: ssm (%s)", ErrSourceNotConfigured, key)
		}
		return i.getParameter(ctx, key)

	case "secret":
		if i.secrets == nil {
			return "", fmt.Errorf("%w: secret (%s)", ErrSourceNotConfigured, key)
		}
		id, field, _ := strings.Cut(key, "#")
		return i.getSecret(ctx, id, field)
	}

	return "", fmt.Errorf("injector: fonte desconhecida '%s'", sourceType)
}

func (i *Injector) getParameter(ctx context.Context, path string) (string, error) {
	out, err := i.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("erro no SSM GetParameter (%s): %w", path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parâmetro SSM %s sem valor", path)
	}
	return *out.Parameter.Value, nil
}

// getSecret devolve o segredo bruto ou, com field, o campo do JSON.
func (i *Injector) getSecret(ctx context.Context, secretID, field string) (string, error) {
	out, err := i.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("erro no SecretsManager (%s): %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("segredo %s sem SecretString", secretID)
	}

	val := *out.SecretString
	if field == "" {
		return val, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return "", fmt.Errorf("segredo %s não é um JSON: %w", secretID, err)
	}
	fv, ok := data[field]
	if !ok {
		return "", fmt.Errorf("segredo %s não possui o campo '%s'", secretID, field)
	}
	return fmt.Sprintf("%v", fv), nil
}
