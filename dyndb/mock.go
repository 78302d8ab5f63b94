package dyndb

import (
	"context"
)

// MockStore é um mock da interface Store[T] para testes.
//
// Ele expõe campos de função (`GetFn`, `PutIfAbsentFn`, etc.) que podem ser
// definidos para simular falhas e respostas específicas do DynamoDB.
type MockStore[T any] struct {
	GetFn         func(ctx context.Context, hashKey, sortKey any) (*T, error)
	PutIfAbsentFn func(ctx context.Context, item T) error
	UpdateFn      func(ctx context.Context, hashKey, sortKey any, changes map[string]any) error
	BatchGetFn    func(ctx context.Context, keys [][2]any) ([]T, error)
	FindFn        func(ctx context.Context, spec QuerySpec) ([]T, error)
}

func (m *MockStore[T]) Get(ctx context.Context, hashKey, sortKey any) (*T, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, hashKey, sortKey)
	}
	return nil, ErrNotFound
}

func (m *MockStore[T]) PutIfAbsent(ctx context.Context, item T) error {
	if m.PutIfAbsentFn != nil {
		return m.PutIfAbsentFn(ctx, item)
	}
	return nil
}

func (m *MockStore[T]) Update(ctx context.Context, hashKey, sortKey any, changes map[string]any) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, hashKey, sortKey, changes)
	}
	return nil
}

func (m *MockStore[T]) BatchGet(ctx context.Context, keys [][2]any) ([]T, error) {
	if m.BatchGetFn != nil {
		return m.BatchGetFn(ctx, keys)
	}
	return nil, nil
}

func (m *MockStore[T]) Find(ctx context.Context, spec QuerySpec) ([]T, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, spec)
	}
	return nil, nil
}
