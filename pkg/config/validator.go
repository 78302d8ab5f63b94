package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza validações estruturais (tags) e semânticas (lógica)
func (cv *ConfigValidator) Validate(cfg *ServiceConfig) error {
	if err := cv.validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("Campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação estrutural:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("erro de validação estrutural: %w", err)
	}

	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("erro de validação semântica: %w", err)
	}

	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *ServiceConfig) error {
	if _, err := time.ParseDuration(cfg.Service.Timeout); err != nil {
		return fmt.Errorf("timeout inválido '%s': %w", cfg.Service.Timeout, err)
	}

	if cfg.DynamoDB.PlanTable == cfg.DynamoDB.ConnectionTable {
		return fmt.Errorf("plan_table e connection_table devem ser tabelas distintas: '%s'", cfg.DynamoDB.PlanTable)
	}

	// namespaces iguais fariam a invalidação de planos apagar conexões
	planNS, connNS := cfg.Redis.PlanNamespace, cfg.Redis.ConnectionNamespace
	if planNS != "" && planNS == connNS {
		return fmt.Errorf("namespaces de cache devem ser distintos: '%s'", planNS)
	}

	if cfg.Invalidation.QueueURL != "" && cfg.Service.Runtime == "lambda" {
		return fmt.Errorf("invalidation.queue_url não é suportado no runtime lambda; use um trigger SQS")
	}

	return nil
}
