package service

import (
	"context"
	"errors"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/cache"
	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/brandonecarr/amosmiller-sub002/internal/repository"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CartService is the server side of cart synchronization: one record per
// user, read through a cache.
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
	}
}

// Load returns the user's saved cart. A user without a record gets an empty
// cart, not an error.
func (s *CartService) Load(ctx context.Context, userID string) (domain.Snapshot, error) {
	record, err := s.record(ctx, userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return record.Snapshot(), nil
}

func (s *CartService) record(ctx context.Context, userID string) (*domain.CartRecord, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).WithField("user_id", userID).Warn("cache get error")
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return &domain.CartRecord{UserID: userID, Items: []domain.LineItem{}}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
				log.WithError(errSet).WithField("user_id", userID).Warn("cache set error")
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.CartRecord), nil
}

// Save replaces the user's record with cart.
func (s *CartService) Save(ctx context.Context, userID string, cart domain.Snapshot) error {
	record := &domain.CartRecord{
		UserID:      userID,
		Items:       assignIDs(domain.Normalize(cart.Items)),
		Fulfillment: cart.Fulfillment.Clone(),
	}
	if err := s.repo.UpsertCart(ctx, record); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("repo upsert cart error")
		return err
	}

	invalidateCache(s, userID)
	return nil
}

// Merge folds a device cart into the user's saved one, stores the result and
// returns it.
func (s *CartService) Merge(ctx context.Context, userID string, local domain.Snapshot) (domain.Snapshot, error) {
	remote, err := s.Load(ctx, userID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	merged := MergeCarts(local, remote)
	merged.Items = assignIDs(merged.Items)
	if err := s.Save(ctx, userID, merged); err != nil {
		return domain.Snapshot{}, err
	}
	return merged, nil
}

// Clear deletes the user's record. Deleting a missing record succeeds.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, repository.ErrCartNotFound) {
		log.WithError(errDelete).WithField("user_id", userID).Error("repo delete cart error")
		return errDelete
	}

	invalidateCache(s, userID)
	return nil
}

func invalidateCache(s *CartService, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("cache invalidate error")
	}
}

func assignIDs(items []domain.LineItem) []domain.LineItem {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
	return items
}
