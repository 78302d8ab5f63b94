package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SQSClient define a interface necessária para o listener (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Invalidator limpa o namespace de listagens de planos.
type Invalidator interface {
	InvalidatePlans(ctx context.Context) (int, error)
}

// InvalidationListener consome a fila SQS e, a cada lote recebido, apaga
// todas as listagens de planos do cache desta instância.
type InvalidationListener struct {
	client       SQSClient
	queueURL     string
	waitSeconds  int32
	invalidator  Invalidator
	metrics      metrics.Provider
	errorBackoff time.Duration
	logger       zerolog.Logger
}

func NewInvalidationListener(client SQSClient, queueURL string, waitSeconds int32, inv Invalidator, p metrics.Provider) *InvalidationListener {
	if p == nil {
		p = metrics.Noop{}
	}
	return &InvalidationListener{
		client:       client,
		queueURL:     queueURL,
		waitSeconds:  waitSeconds,
		invalidator:  inv,
		metrics:      p,
		errorBackoff: 5 * time.Second,
		logger:       log.With().Str("component", "cache_invalidation").Logger(),
	}
}

// Start inicia o long polling (bloqueante) até o contexto ser cancelado.
func (l *InvalidationListener) Start(ctx context.Context) {
	if l.queueURL == "" {
		l.logger.Warn().Msg("URL da fila SQS não configurada. Invalidação remota desativada.")
		return
	}

	l.logger.Info().Str("queue", l.queueURL).Msg("Monitorando fila SQS para invalidação de cache")

	for {
		if ctx.Err() != nil {
			l.logger.Info().Msg("Parando monitoramento SQS")
			return
		}

		out, err := l.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(l.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     l.waitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error().Err(err).Msgf("Erro no SQS. Retentando em %s...", l.errorBackoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.errorBackoff):
			}
			continue
		}

		if len(out.Messages) == 0 {
			continue
		}

		// mensagens só são removidas após a invalidação; em caso de falha
		// voltam para a fila quando expira o visibility timeout
		if err := l.invalidate(ctx, len(out.Messages)); err != nil {
			continue
		}

		for _, msg := range out.Messages {
			if _, err := l.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(l.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				l.logger.Warn().Err(err).Str("message_id", aws.ToString(msg.MessageId)).Msg("Falha removendo mensagem da fila")
			}
		}
	}
}

func (l *InvalidationListener) invalidate(ctx context.Context, messages int) error {
	_ = l.metrics.Count(metrics.InvalidationMessages, float64(messages), nil)

	removed, err := l.invalidator.InvalidatePlans(ctx)
	if err != nil {
		metrics.Incr(l.metrics, metrics.InvalidationFailed, metrics.Tag("source", "sqs"))
		l.logger.Error().Err(err).Int("messages", messages).Msg("Falha invalidando listagens de planos")
		return fmt.Errorf("invalidação remota: %w", err)
	}

	_ = l.metrics.Count(metrics.CacheInvalidated, float64(removed), []string{metrics.Tag("source", "sqs")})
	l.logger.Info().Int("messages", messages).Int("removed_keys", removed).Msg("Listagens de planos invalidadas")
	return nil
}
