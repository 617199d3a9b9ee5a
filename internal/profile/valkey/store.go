// Package profilevalkey caches profile records in valkey in front of an
// authoritative repository.
package profilevalkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

type store struct {
	valkey valkey.Client
	prefix string
	ttl    time.Duration
}

func newStore(valkeyClient valkey.Client, prefix string, ttl time.Duration) *store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &store{
		valkey: valkeyClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *store) Get(ctx context.Context, objectType, objectID string, decodeInto any) error {
	key := s.key(objectType, objectID)
	return s.get(ctx, key, decodeInto)
}

func (s *store) Set(ctx context.Context, objectType, id string, val any) error {
	key := s.key(objectType, id)
	bytes, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	cmd := s.valkey.B().Set().Key(key).Value(valkey.BinaryString(bytes)).Ex(s.ttl).Build()
	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *store) Destroy(ctx context.Context, objectType, id string) error {
	key := s.key(objectType, id)
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

// Keys returns the object ids of every cached object of the given type.
func (s *store) Keys(ctx context.Context, objectType string) ([]string, error) {
	match := s.key(objectType, "*")
	keyPrefix := s.key(objectType, "")

	var ids []string
	var cursor uint64
	for {
		scan, err := s.valkey.Do(ctx, s.valkey.B().Scan().Cursor(cursor).Match(match).Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("executing scan command: %w", err)
		}

		cursor = scan.Cursor
		ids = slices.Grow(ids, len(scan.Elements))
		for _, key := range scan.Elements {
			ids = append(ids, strings.TrimPrefix(key, keyPrefix))
		}

		if cursor == 0 {
			return ids, nil
		}
	}
}

func (s *store) get(ctx context.Context, key string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return errors.Join(valkeyErr, serviceerr.ErrNotFound)
		}

		return fmt.Errorf("executing get command: %w", err)
	}

	if err := json.Unmarshal(bytes, decodeInto); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}

func (s *store) key(objectType string, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}
