package dyndb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryStore implementa Store[T] em memória, com as mesmas condições de
// escrita do DynamoDB. Usado no driver "memory" e nos testes.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	cfg   TableConfig[T]
	codec Codec[T]
	items map[string]map[string]types.AttributeValue
}

// NewMemory cria um MemoryStore vazio.
func NewMemory[T any](cfg TableConfig[T]) *MemoryStore[T] {
	return &MemoryStore[T]{
		cfg:   cfg,
		codec: cfg.codec(),
		items: make(map[string]map[string]types.AttributeValue),
	}
}

// Len retorna a quantidade de itens armazenados.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryStore[T]) Get(ctx context.Context, hashKey, sortKey any) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dyndb: get failed: %w: %w", ErrUnavailable, err)
	}

	m.mu.RLock()
	raw, ok := m.items[m.id(attr(hashKey), m.sortAttr(sortKey))]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	item, err := m.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("dyndb: get: %w", err)
	}
	return &item, nil
}

func (m *MemoryStore[T]) PutIfAbsent(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dyndb: put failed: %w: %w", ErrUnavailable, err)
	}

	av, err := m.codec.Encode(item)
	if err != nil {
		return fmt.Errorf("dyndb: put: %w", err)
	}
	id := m.id(av[m.cfg.HashKey], av[m.cfg.SortKey])

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[id]; exists {
		return fmt.Errorf("dyndb: put: %w", ErrConditionFailed)
	}
	m.items[id] = av
	return nil
}

func (m *MemoryStore[T]) Update(ctx context.Context, hashKey, sortKey any, changes map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dyndb: update failed: %w: %w", ErrUnavailable, err)
	}

	id := m.id(attr(hashKey), m.sortAttr(sortKey))

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[id]
	if !ok {
		return fmt.Errorf("dyndb: update: %w", ErrConditionFailed)
	}

	next := make(map[string]types.AttributeValue, len(current)+len(changes))
	for k, v := range current {
		next[k] = v
	}
	for name, value := range changes {
		if name == m.cfg.HashKey || name == m.cfg.SortKey {
			continue
		}
		next[name] = attr(value)
	}
	m.items[id] = next
	return nil
}

func (m *MemoryStore[T]) BatchGet(ctx context.Context, keys [][2]any) ([]T, error) {
	var results []T
	for _, k := range keys {
		item, err := m.Get(ctx, k[0], k[1])
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, *item)
	}
	return results, nil
}

// Find devolve os itens ordenados pela sort key, como a Query do DynamoDB.
func (m *MemoryStore[T]) Find(ctx context.Context, spec QuerySpec) ([]T, error) {
	if len(spec.Key) == 0 {
		return nil, ErrInvalidQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dyndb: query failed: %w: %w", ErrUnavailable, err)
	}

	m.mu.RLock()
	var matched []map[string]types.AttributeValue
	for _, raw := range m.items {
		if matches(raw, spec.Key) && matches(raw, spec.Filters) {
			matched = append(matched, raw)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return keyString(matched[i][m.cfg.SortKey]) < keyString(matched[j][m.cfg.SortKey])
	})

	results := make([]T, 0, len(matched))
	for _, raw := range matched {
		t, err := m.codec.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("dyndb: query: %w", err)
		}
		results = append(results, t)
	}
	return results, nil
}

func (m *MemoryStore[T]) sortAttr(sortKey any) types.AttributeValue {
	if m.cfg.SortKey == "" || sortKey == nil {
		return nil
	}
	return attr(sortKey)
}

func (m *MemoryStore[T]) id(hash, sortValue types.AttributeValue) string {
	if m.cfg.SortKey == "" {
		return keyString(hash)
	}
	return keyString(hash) + "\x00" + keyString(sortValue)
}

func matches(item map[string]types.AttributeValue, conds []Equality) bool {
	for _, c := range conds {
		got, ok := item[c.Name]
		if !ok || !sameValue(got, attr(c.Value)) {
			return false
		}
	}
	return true
}

func sameValue(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	default:
		return reflect.DeepEqual(a, b)
	}
}

func keyString(v types.AttributeValue) string {
	switch av := v.(type) {
	case nil:
		return ""
	case *types.AttributeValueMemberS:
		return "S:" + av.Value
	case *types.AttributeValueMemberN:
		return "N:" + av.Value
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
