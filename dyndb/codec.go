package dyndb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AttributeValueCodec usa as tags `dynamodbav` do próprio tipo.
type AttributeValueCodec[T any] struct{}

func (AttributeValueCodec[T]) Encode(item T) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %w", ErrCodec, err)
	}
	return av, nil
}

func (AttributeValueCodec[T]) Decode(item map[string]types.AttributeValue) (T, error) {
	var t T
	if err := attributevalue.UnmarshalMap(item, &t); err != nil {
		return t, fmt.Errorf("%w: unmarshal: %w", ErrCodec, err)
	}
	return t, nil
}

// attr converte qualquer valor para types.AttributeValue
func attr(v any) types.AttributeValue {
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	if av, ok := v.(types.AttributeValue); ok {
		return av
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	return av
}
