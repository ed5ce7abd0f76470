package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foodshare/internal/cache"
	"foodshare/internal/model"
	"foodshare/internal/repository"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardCacheTTL = 1 * time.Minute
)

// DashboardCounts aggregates the numbers shown on the admin dashboard.
type DashboardCounts struct {
	Donors            int64 `json:"donors"`
	Receivers         int64 `json:"receivers"`
	Listings          int64 `json:"listings"`
	AvailableListings int64 `json:"available_listings"`
	Claims            int64 `json:"claims"`
}

// AdminService handles moderation operations: user and listing overviews
// plus aggregate counts.
type AdminService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListListings(ctx context.Context) ([]model.FoodListing, error)
	Dashboard(ctx context.Context) (*DashboardCounts, error)
}

type adminService struct {
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	cache       *cache.Client
}

// NewAdminService creates a new admin service.
func NewAdminService(userRepo repository.UserRepository, listingRepo repository.ListingRepository, cache *cache.Client) AdminService {
	return &adminService{
		userRepo:    userRepo,
		listingRepo: listingRepo,
		cache:       cache,
	}
}

// ListUsers returns every registered user, newest first.
func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListListings returns every listing, newest first.
func (s *adminService) ListListings(ctx context.Context) ([]model.FoodListing, error) {
	listings, err := s.listingRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

// Dashboard returns aggregate counts, cached for a short period.
func (s *adminService) Dashboard(ctx context.Context) (*DashboardCounts, error) {
	if data, _ := s.cache.Get(ctx, dashboardCacheKey); data != nil {
		var cached DashboardCounts
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	counts := &DashboardCounts{}
	var err error
	if counts.Donors, err = s.userRepo.CountByRole(ctx, model.RoleDonor); err != nil {
		return nil, fmt.Errorf("count donors: %w", err)
	}
	if counts.Receivers, err = s.userRepo.CountByRole(ctx, model.RoleReceiver); err != nil {
		return nil, fmt.Errorf("count receivers: %w", err)
	}
	if counts.Listings, err = s.listingRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}
	if counts.AvailableListings, err = s.listingRepo.CountAvailable(ctx, time.Now()); err != nil {
		return nil, fmt.Errorf("count available listings: %w", err)
	}
	if counts.Claims, err = s.listingRepo.CountClaims(ctx); err != nil {
		return nil, fmt.Errorf("count claims: %w", err)
	}

	if payload, err := json.Marshal(counts); err == nil {
		_ = s.cache.Set(ctx, dashboardCacheKey, payload, dashboardCacheTTL)
	}

	return counts, nil
}
