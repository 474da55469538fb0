// Package service holds the contact business layer sitting between the
// HTTP handlers and the repository.
package service

import (
	"context"

	"contacts/internal/cache"
	"contacts/internal/model"
	"contacts/internal/repository"
)

// ContactService wraps the contact repository with a read-through cache
// for the two query endpoints. Writes are not write-through and do not
// invalidate; cached pages simply age out on their short TTLs, so a fresh
// create can lag in search results for up to the search TTL.
type ContactService struct {
	repo  *repository.ContactRepo
	cache *cache.ContactCache
}

func NewContactService(repo *repository.ContactRepo, cc *cache.ContactCache) *ContactService {
	return &ContactService{repo: repo, cache: cc}
}

func (s *ContactService) Create(ctx context.Context, ownerID uint64, ct model.Contact) (model.Contact, error) {
	return s.repo.Create(ctx, ownerID, ct)
}

func (s *ContactService) List(ctx context.Context, ownerID uint64, skip, limit int) ([]model.Contact, error) {
	return s.repo.GetByOwner(ctx, ownerID, skip, limit)
}

func (s *ContactService) Get(ctx context.Context, id, ownerID uint64) (model.Contact, error) {
	return s.repo.GetByID(ctx, id, ownerID)
}

func (s *ContactService) Update(ctx context.Context, id, ownerID uint64, patch repository.ContactPatch) (model.Contact, error) {
	return s.repo.Update(ctx, id, ownerID, patch)
}

func (s *ContactService) Delete(ctx context.Context, id, ownerID uint64) error {
	return s.repo.Delete(ctx, id, ownerID)
}

// Search runs a filtered contact search through the cache. The key hashes
// the normalized filters plus pagination, namespaced by owner.
func (s *ContactService) Search(ctx context.Context, ownerID uint64, q repository.ContactSearchQuery) ([]model.Contact, error) {
	key := cache.SearchKey(ownerID, q.FirstName, q.LastName, q.Email, q.Skip, q.Limit)
	if hit, ok := s.cache.Get(ctx, key); ok {
		return hit, nil
	}
	out, err := s.repo.Search(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, out, s.cache.SearchTTL())
	return out, nil
}

// UpcomingBirthdays returns contacts with a birthday in the next `days`
// days, through the cache.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID uint64, days int) ([]model.Contact, error) {
	key := cache.BirthdaysKey(ownerID, days)
	if hit, ok := s.cache.Get(ctx, key); ok {
		return hit, nil
	}
	out, err := s.repo.UpcomingBirthdays(ctx, ownerID, days)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, out, s.cache.BirthdaysTTL())
	return out, nil
}
