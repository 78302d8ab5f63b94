package broadband

import (
	"errors"
	"fmt"

	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/cache"
)

var (
	// ErrStoreUnavailable indica falha de comunicação com o DynamoDB.
	ErrStoreUnavailable = errors.New("broadband: error connecting to database")
	// ErrNotFound indica plano ou conexão inexistente.
	ErrNotFound = errors.New("broadband: not found")
	// ErrDuplicateSubject indica que o número já possui conexão ativa.
	ErrDuplicateSubject = errors.New("broadband: connection already exists")
	// ErrDuplicatePlan indica colisão de PlanID na criação.
	ErrDuplicatePlan = errors.New("broadband: plan already exists")
	// ErrSerialization cobre falhas de codificação no cache ou no store.
	ErrSerialization = errors.New("broadband: serialization failure")
	// ErrCacheUnavailable indica falha de comunicação com o Redis.
	ErrCacheUnavailable = errors.New("broadband: cache unavailable")
)

// storeError traduz os erros do dyndb para os erros do domínio.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, dyndb.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, dyndb.ErrCodec):
		return fmt.Errorf("%s: %w: %w", op, ErrSerialization, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}

func cacheError(op string, err error) error {
	if errors.Is(err, cache.ErrSerialization) {
		return fmt.Errorf("%s: %w: %w", op, ErrSerialization, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCacheUnavailable, err)
}
