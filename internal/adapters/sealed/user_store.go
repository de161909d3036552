package sealed

import (
	"context"
	"errors"

	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/ports"
)

var _ ports.UserStore = (*UserStore)(nil)

// UserStore wraps another store and seals everything written through it.
// A record that cannot be opened loads as a CorruptState error.
type UserStore struct {
	inner  ports.UserStore
	sealer Sealer
}

// NewUserStore wraps inner with sealer.
func NewUserStore(inner ports.UserStore, sealer Sealer) (*UserStore, error) {
	if inner == nil {
		return nil, errors.New("inner store is required")
	}
	if sealer == nil {
		return nil, errors.New("sealer is required")
	}
	return &UserStore{inner: inner, sealer: sealer}, nil
}

func (s *UserStore) Load(ctx context.Context) ([]byte, error) {
	raw, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	pt, err := s.sealer.Open(raw)
	if err != nil {
		return nil, apperrors.CorruptState(err)
	}
	return pt, nil
}

func (s *UserStore) Save(ctx context.Context, data []byte) error {
	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, sealed)
}

func (s *UserStore) Delete(ctx context.Context) error {
	return s.inner.Delete(ctx)
}
