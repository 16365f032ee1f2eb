package records

import "context"

// Collection is a typed view of one collection of the store
type Collection[T any] struct {
	client *Client
	name   string
}

func NewCollection[T any](client *Client, name string) Collection[T] {
	return Collection[T]{client: client, name: name}
}

func (c Collection[T]) Name() string {
	return c.name
}

func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := c.client.Get(ctx, c.name, id, &out)
	return out, err
}

func (c Collection[T]) List(ctx context.Context, filters Filters) ([]T, error) {
	out := make([]T, 0)
	err := c.client.List(ctx, c.name, filters, &out)
	return out, err
}

func (c Collection[T]) Create(ctx context.Context, payload T) (T, error) {
	var out T
	err := c.client.Create(ctx, c.name, payload, &out)
	return out, err
}

func (c Collection[T]) Update(ctx context.Context, id string, payload T) (T, error) {
	var out T
	err := c.client.Update(ctx, c.name, id, payload, &out)
	return out, err
}

func (c Collection[T]) Remove(ctx context.Context, id string) (T, error) {
	var out T
	err := c.client.Remove(ctx, c.name, id, &out)
	return out, err
}
