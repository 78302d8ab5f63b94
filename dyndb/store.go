package dyndb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	batchGetLimit = 100

	// rodadas de reenvio de UnprocessedKeys antes de desistir
	maxBatchRounds = 5
)

type dynamoStore[T any] struct {
	client DynamoDBClient
	cfg    TableConfig[T]
	codec  Codec[T]
}

// New cria um store reutilizável
func New[T any](client DynamoDBClient, cfg TableConfig[T]) Store[T] {
	return &dynamoStore[T]{
		client: client,
		cfg:    cfg,
		codec:  cfg.codec(),
	}
}

func (s *dynamoStore[T]) key(hashKey, sortKey any) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		s.cfg.HashKey: attr(hashKey),
	}
	if s.cfg.SortKey != "" && sortKey != nil {
		key[s.cfg.SortKey] = attr(sortKey)
	}
	return key
}

// Get item por chave primária
func (s *dynamoStore[T]) Get(ctx context.Context, hashKey, sortKey any) (*T, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.cfg.TableName),
		Key:            s.key(hashKey, sortKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("get", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	item, err := s.codec.Decode(out.Item)
	if err != nil {
		return nil, fmt.Errorf("dyndb: get: %w", err)
	}
	return &item, nil
}

// PutIfAbsent grava com attribute_not_exists na hash e na sort key; a
// atomicidade fica a cargo do DynamoDB.
func (s *dynamoStore[T]) PutIfAbsent(ctx context.Context, item T) error {
	av, err := s.codec.Encode(item)
	if err != nil {
		return fmt.Errorf("dyndb: put: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name(s.cfg.HashKey))
	if s.cfg.SortKey != "" {
		cond = cond.And(expression.AttributeNotExists(expression.Name(s.cfg.SortKey)))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dyndb: put: build condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.cfg.TableName),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return classify("put", err)
	}
	return nil
}

// Update faz SET dos atributos informados, exigindo que o item exista.
func (s *dynamoStore[T]) Update(ctx context.Context, hashKey, sortKey any, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}

	names := make([]string, 0, len(changes))
	for name := range changes {
		if name == s.cfg.HashKey || name == s.cfg.SortKey {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	var update expression.UpdateBuilder
	for i, name := range names {
		value := expression.Value(changes[name])
		if i == 0 {
			update = expression.Set(expression.Name(name), value)
			continue
		}
		update = update.Set(expression.Name(name), value)
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name(s.cfg.HashKey))).
		Build()
	if err != nil {
		return fmt.Errorf("dyndb: update: build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.cfg.TableName),
		Key:                       s.key(hashKey, sortKey),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classify("update", err)
	}
	return nil
}

// BatchGet lê até 100 chaves por chamada, reenviando UnprocessedKeys
func (s *dynamoStore[T]) BatchGet(ctx context.Context, keys [][2]any) ([]T, error) {
	keysToGet := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		keysToGet = append(keysToGet, s.key(k[0], k[1]))
	}

	var results []T
	for i := 0; i < len(keysToGet); i += batchGetLimit {
		end := min(i+batchGetLimit, len(keysToGet))

		pending := map[string]types.KeysAndAttributes{
			s.cfg.TableName: {
				Keys:           keysToGet[i:end],
				ConsistentRead: aws.Bool(true),
			},
		}

		for round := 0; len(pending) > 0; round++ {
			if round == maxBatchRounds {
				return nil, fmt.Errorf("dyndb: batchget: %w: unprocessed keys after %d rounds", ErrUnavailable, round)
			}

			resp, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, classify("batchget", err)
			}

			for _, item := range resp.Responses[s.cfg.TableName] {
				t, err := s.codec.Decode(item)
				if err != nil {
					return nil, fmt.Errorf("dyndb: batchget: %w", err)
				}
				results = append(results, t)
			}
			pending = resp.UnprocessedKeys
		}
	}

	return results, nil
}

// classify separa falha de condição de indisponibilidade do store.
func classify(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("dyndb: %s: %w", op, ErrConditionFailed)
	}
	return fmt.Errorf("dyndb: %s failed: %w: %w", op, ErrUnavailable, err)
}
