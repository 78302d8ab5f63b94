package dyndb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Equality é um predicado `nome = valor`.
type Equality struct {
	Name  string
	Value any
}

// QuerySpec descreve uma Query: Key vincula a partition key (e opcionalmente a
// sort key); Filters são aplicados no servidor, combinados com AND.
type QuerySpec struct {
	Key     []Equality
	Filters []Equality
}

// KeyEqual adiciona uma condição de chave.
func (q QuerySpec) KeyEqual(name string, value any) QuerySpec {
	q.Key = append(append([]Equality(nil), q.Key...), Equality{Name: name, Value: value})
	return q
}

// FilterEqual adiciona um filtro de igualdade.
func (q QuerySpec) FilterEqual(name string, value any) QuerySpec {
	q.Filters = append(append([]Equality(nil), q.Filters...), Equality{Name: name, Value: value})
	return q
}

// Expression monta key condition e filter com o expression.Builder do SDK.
func (q QuerySpec) Expression() (expression.Expression, error) {
	if len(q.Key) == 0 {
		return expression.Expression{}, ErrInvalidQuery
	}

	var keyCond *expression.KeyConditionBuilder
	for _, k := range q.Key {
		cond := expression.KeyEqual(expression.Key(k.Name), expression.Value(k.Value))
		if keyCond == nil {
			keyCond = &cond
		} else {
			tmp := keyCond.And(cond)
			keyCond = &tmp
		}
	}

	var filterCond *expression.ConditionBuilder
	for _, f := range q.Filters {
		cond := expression.Equal(expression.Name(f.Name), expression.Value(f.Value))
		if filterCond == nil {
			filterCond = &cond
		} else {
			tmp := filterCond.And(cond)
			filterCond = &tmp
		}
	}

	builder := expression.NewBuilder().WithKeyCondition(*keyCond)
	if filterCond != nil {
		builder = builder.WithFilter(*filterCond)
	}
	return builder.Build()
}

// Find executa a Query paginando por LastEvaluatedKey.
func (s *dynamoStore[T]) Find(ctx context.Context, spec QuerySpec) ([]T, error) {
	expr, err := spec.Expression()
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var (
		results []T
		lastKey map[string]types.AttributeValue
	)
	for {
		input.ExclusiveStartKey = lastKey

		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, classify("query", err)
		}

		for _, item := range out.Items {
			t, err := s.codec.Decode(item)
			if err != nil {
				return nil, fmt.Errorf("dyndb: query: %w", err)
			}
			results = append(results, t)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return results, nil
}
