package modqueue

import (
	"context"
)

type MemItemStore struct {
	Items map[int64]Item
}

func NewMemItemStore() *MemItemStore {
	return &MemItemStore{
		Items: make(map[int64]Item),
	}
}

func (s *MemItemStore) Get(ctx context.Context, id int64) (*Item, error) {
	it, ok := s.Items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (s *MemItemStore) Put(ctx context.Context, item *Item) error {
	s.Items[item.ID] = *item
	return nil
}

func (s *MemItemStore) Delete(ctx context.Context, id int64) error {
	delete(s.Items, id)
	return nil
}

func (s *MemItemStore) List(ctx context.Context) ([]*Item, error) {
	out := make([]*Item, 0, len(s.Items))
	for id := range s.Items {
		it := s.Items[id]
		out = append(out, &it)
	}
	return out, nil
}

func (s *MemItemStore) Count(ctx context.Context) (int, error) {
	return len(s.Items), nil
}
