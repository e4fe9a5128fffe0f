package dialog

import (
	"context"
)

type MemStore struct {
	Dialogs map[int64]Dialog
}

func NewMemStore() *MemStore {
	return &MemStore{
		Dialogs: make(map[int64]Dialog),
	}
}

func (s *MemStore) Get(ctx context.Context, actorID int64) (*Dialog, error) {
	d, ok := s.Dialogs[actorID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *MemStore) Set(ctx context.Context, d *Dialog) error {
	s.Dialogs[d.ActorID] = *d
	return nil
}

func (s *MemStore) Delete(ctx context.Context, actorID int64) error {
	delete(s.Dialogs, actorID)
	return nil
}

func (s *MemStore) List(ctx context.Context) ([]*Dialog, error) {
	out := make([]*Dialog, 0, len(s.Dialogs))
	for id := range s.Dialogs {
		d := s.Dialogs[id]
		out = append(out, &d)
	}
	return out, nil
}
