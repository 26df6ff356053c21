package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/notify"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func errUnknownKey(key string) error {
	return tillerr.User("unknown setting %q", key)
}

// Service reads and writes typed settings. Reads are cached until a
// config notification names the key.
type Service struct {
	repo  Repository
	cache *lru.Cache
	log   *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) (*Service, error) {
	cache, err := lru.New(128)
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, cache: cache, log: log}, nil
}

// Get returns a setting, from the cache when possible.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	if v, ok := s.cache.Get(key); ok {
		setting := v.(Setting)
		return &setting, nil
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, database.Classify(err))
	}
	s.cache.Add(key, *setting)
	return setting, nil
}

func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Set validates value against the setting's type and stores it.
func (s *Service) Set(ctx context.Context, key, value string) error {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := validate(setting.Type, value); err != nil {
		return tillerr.User("invalid value for %s: %v", key, err)
	}
	if err := s.repo.SetValue(ctx, key, value); err != nil {
		return database.Classify(err)
	}
	s.cache.Remove(key)
	return nil
}

func validate(typ, value string) error {
	var err error
	switch typ {
	case TypeInteger:
		_, err = strconv.Atoi(value)
	case TypeInterval:
		_, err = ParseInterval(value)
	case TypeBoolean:
		_, err = strconv.ParseBool(value)
	case TypeMoney:
		_, err = decimal.NewFromString(value)
	case TypeText:
	default:
		err = fmt.Errorf("unknown type %q", typ)
	}
	return err
}

// Duration returns an interval setting, or def if it is missing or
// malformed.
func (s *Service) Duration(ctx context.Context, key string, def time.Duration) time.Duration {
	setting, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	d, err := ParseInterval(setting.Value)
	if err != nil {
		s.log.Warn("malformed interval setting", zap.String("key", key), zap.String("value", setting.Value))
		return def
	}
	return d
}

// Int returns an integer setting, or def.
func (s *Service) Int(ctx context.Context, key string, def int) int {
	setting, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(setting.Value)
	if err != nil {
		s.log.Warn("malformed integer setting", zap.String("key", key), zap.String("value", setting.Value))
		return def
	}
	return n
}

// Text returns a text setting, or def.
func (s *Service) Text(ctx context.Context, key, def string) string {
	setting, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	return setting.Value
}

func (s *Service) lookup(ctx context.Context, key string) (*Setting, bool) {
	setting, err := s.Get(ctx, key)
	if err != nil {
		if !tillerr.Is(err, tillerr.KindState) && !errors.Is(err, context.Canceled) {
			s.log.Warn("reading setting", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return setting, true
}

// Invalidate drops key from the cache; an empty key drops everything.
func (s *Service) Invalidate(key string) {
	if key == "" {
		s.cache.Purge()
		return
	}
	s.cache.Remove(key)
}

// Watch invalidates cached settings as config notifications arrive, until
// ch is closed or ctx is done.
func (s *Service) Watch(ctx context.Context, ch <-chan notify.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			s.Invalidate(n.Payload)
		}
	}
}
