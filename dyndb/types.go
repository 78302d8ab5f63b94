// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package dyndb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrNotFound é o erro padrão quando o item não existe
	ErrNotFound = errors.New("dyndb: item not found")

	// ErrConditionFailed indica que a condição de escrita não foi satisfeita
	// (item já existe no PutIfAbsent ou não existe no Update).
	ErrConditionFailed = errors.New("dyndb: condition check failed")

	// ErrUnavailable cobre falhas de rede, throttling e qualquer erro do SDK
	// que não seja uma falha de condição.
	ErrUnavailable = errors.New("dyndb: store unavailable")

	// ErrCodec indica falha ao converter entre T e o mapa de atributos.
	ErrCodec = errors.New("dyndb: codec failure")

	// ErrInvalidQuery é retornado quando a QuerySpec não vincula a partition key.
	ErrInvalidQuery = errors.New("dyndb: query must bind the hash key")
)

// DynamoDBClient interface para abstrair o cliente DynamoDB
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store é a interface principal (genérica)
type Store[T any] interface {
	Get(ctx context.Context, hashKey, sortKey any) (*T, error)

	// PutIfAbsent grava o item somente se a chave (hash, sort) ainda não existir.
	PutIfAbsent(ctx context.Context, item T) error

	// Update aplica SET em cada atributo de changes. O item precisa existir.
	Update(ctx context.Context, hashKey, sortKey any, changes map[string]any) error

	BatchGet(ctx context.Context, keys [][2]any) ([]T, error)

	// Find executa a consulta até esgotar a partição (segue LastEvaluatedKey).
	Find(ctx context.Context, spec QuerySpec) ([]T, error)
}

// Codec converte T de/para o formato de atributos do DynamoDB.
type Codec[T any] interface {
	Encode(item T) (map[string]types.AttributeValue, error)
	Decode(item map[string]types.AttributeValue) (T, error)
}

// TableConfig descreve a tabela
type TableConfig[T any] struct {
	TableName string `env:"DYNAMODB_TABLE_NAME"`
	HashKey   string `env:"DYNAMODB_HASH_KEY"`
	SortKey   string `env:"DYNAMODB_SORT_KEY"` // opcional

	// Codec opcional; quando nil usa attributevalue.MarshalMap/UnmarshalMap
	Codec Codec[T]
}

func (c TableConfig[T]) codec() Codec[T] {
	if c.Codec != nil {
		return c.Codec
	}
	return AttributeValueCodec[T]{}
}
