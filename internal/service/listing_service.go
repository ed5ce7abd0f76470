package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"foodshare/internal/errors"
	"foodshare/internal/model"
	"foodshare/internal/repository"
	"foodshare/internal/storage"
)

// CreateListingInput carries the fields for a new listing. ImageRef is the
// blob-store reference of an already uploaded image, empty for none.
type CreateListingInput struct {
	Category        string
	Description     string
	Quantity        decimal.Decimal
	Location        string
	ManufactureTime time.Time
	ExpiryTime      time.Time
	MaxClaims       int
	ImageRef        string
}

// UpdateListingInput carries optional field edits; nil fields are untouched.
type UpdateListingInput struct {
	Category        *string
	Description     *string
	Quantity        *decimal.Decimal
	Location        *string
	ManufactureTime *time.Time
	ExpiryTime      *time.Time
	MaxClaims       *int
	ImageRef        string // replacement image reference, empty for none
}

// ListingService implements the listing lifecycle: donor CRUD, the claim
// decision, and the three consumer views.
type ListingService interface {
	Create(ctx context.Context, donor *model.User, in CreateListingInput) (*model.FoodListing, error)
	Update(ctx context.Context, requester *model.User, id uuid.UUID, in UpdateListingInput) (*model.FoodListing, error)
	Delete(ctx context.Context, requester *model.User, id uuid.UUID) error
	Claim(ctx context.Context, receiver *model.User, id uuid.UUID) (*model.FoodListing, error)
	ListAvailable(ctx context.Context, requester *model.User) ([]model.FoodListing, error)
	ListOwn(ctx context.Context, requester *model.User) ([]model.FoodListing, error)
	ListClaimed(ctx context.Context, requester *model.User) ([]model.FoodListing, error)
}

type listingService struct {
	listingRepo repository.ListingRepository
	blobs       storage.BlobStore
	baseURL     string
	now         func() time.Time
}

// NewListingService creates a new listing service. baseURL is the public
// address local image references are resolved against.
func NewListingService(listingRepo repository.ListingRepository, blobs storage.BlobStore, baseURL string) ListingService {
	return &listingService{
		listingRepo: listingRepo,
		blobs:       blobs,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		now:         time.Now,
	}
}

// Create validates and persists a new listing owned by the donor. If the
// listing cannot be created, a just-uploaded image is removed so failed
// writes leave no orphaned files.
func (s *listingService) Create(ctx context.Context, donor *model.User, in CreateListingInput) (*model.FoodListing, error) {
	if donor.Role != model.RoleDonor {
		s.cleanupImage(in.ImageRef)
		return nil, errors.ErrForbidden
	}
	if err := validateListingFields(in.MaxClaims, in.ExpiryTime, in.Quantity); err != nil {
		s.cleanupImage(in.ImageRef)
		return nil, err
	}

	listing := &model.FoodListing{
		DonorID:         donor.ID,
		DonorName:       donor.Name,
		Category:        model.NormalizeCategory(in.Category),
		Description:     in.Description,
		Quantity:        in.Quantity,
		Location:        in.Location,
		ImageRef:        in.ImageRef,
		ManufactureTime: in.ManufactureTime,
		ExpiryTime:      in.ExpiryTime,
		MaxClaims:       in.MaxClaims,
	}

	if err := s.listingRepo.Create(ctx, listing); err != nil {
		s.cleanupImage(in.ImageRef)
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.resolveImageURL(listing)
	return listing, nil
}

// Update applies field edits to a listing owned by the requester. A newly
// supplied image replaces the old one; the old file is deleted unless it was
// the placeholder or an external URL.
func (s *listingService) Update(ctx context.Context, requester *model.User, id uuid.UUID, in UpdateListingInput) (*model.FoodListing, error) {
	listing, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		s.cleanupImage(in.ImageRef)
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	if listing.DonorID != requester.ID {
		s.cleanupImage(in.ImageRef)
		return nil, errors.ErrForbidden
	}

	if in.Category != nil {
		listing.Category = model.NormalizeCategory(*in.Category)
	}
	if in.Description != nil {
		listing.Description = *in.Description
	}
	if in.Quantity != nil {
		listing.Quantity = *in.Quantity
	}
	if in.Location != nil {
		listing.Location = *in.Location
	}
	if in.ManufactureTime != nil {
		listing.ManufactureTime = *in.ManufactureTime
	}
	if in.ExpiryTime != nil {
		listing.ExpiryTime = *in.ExpiryTime
	}
	if in.MaxClaims != nil {
		listing.MaxClaims = *in.MaxClaims
	}
	if err := validateListingFields(listing.MaxClaims, listing.ExpiryTime, listing.Quantity); err != nil {
		s.cleanupImage(in.ImageRef)
		return nil, err
	}

	oldImage := listing.ImageRef
	if in.ImageRef != "" {
		listing.ImageRef = in.ImageRef
	}

	if err := s.listingRepo.Update(ctx, listing); err != nil {
		s.cleanupImage(in.ImageRef)
		return nil, fmt.Errorf("update listing: %w", err)
	}

	if in.ImageRef != "" && oldImage != in.ImageRef {
		s.cleanupImage(oldImage)
	}

	s.resolveImageURL(listing)
	return listing, nil
}

// Delete removes a listing. Only the owning donor or an admin may delete;
// the attached non-placeholder image file is removed best-effort.
func (s *listingService) Delete(ctx context.Context, requester *model.User, id uuid.UUID) error {
	listing, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrListingNotFound
		}
		return fmt.Errorf("find listing: %w", err)
	}
	if listing.DonorID != requester.ID && requester.Role != model.RoleAdmin {
		return errors.ErrForbidden
	}

	if err := s.listingRepo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrListingNotFound
		}
		return fmt.Errorf("delete listing: %w", err)
	}

	s.cleanupImage(listing.ImageRef)
	return nil
}

// Claim decides a claim attempt in fixed order: expired, then full, then
// duplicate, then allow. The whole evaluation runs inside a transaction
// holding a row lock on the listing, so claims_count can never pass
// max_claims even under concurrent attempts.
func (s *listingService) Claim(ctx context.Context, receiver *model.User, id uuid.UUID) (*model.FoodListing, error) {
	if receiver.Role != model.RoleReceiver {
		return nil, errors.ErrForbidden
	}

	err := s.listingRepo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.ListingRepository) error {
		listing, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrListingNotFound
			}
			return fmt.Errorf("find listing: %w", err)
		}

		if listing.Expired(s.now()) {
			return errors.ErrListingExpired
		}
		if listing.Full() {
			return errors.ErrListingFull
		}
		if listing.ClaimedBy(receiver.ID) {
			return errors.ErrAlreadyClaimed
		}

		claim := &model.Claim{
			ReceiverID:   receiver.ID,
			ReceiverName: receiver.Name,
		}
		if err := txRepo.AppendClaim(ctx, listing.ID, claim); err != nil {
			return fmt.Errorf("append claim: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	listing, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload listing: %w", err)
	}
	s.resolveImageURL(listing)
	return listing, nil
}

// ListAvailable returns unexpired listings with free slots, soonest-expiring
// first. Restricted to receivers.
func (s *listingService) ListAvailable(ctx context.Context, requester *model.User) ([]model.FoodListing, error) {
	if requester.Role != model.RoleReceiver {
		return nil, errors.ErrForbidden
	}
	listings, err := s.listingRepo.ListAvailable(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list available: %w", err)
	}
	s.resolveImageURLs(listings)
	return listings, nil
}

// ListOwn returns the donor's own listings, newest first.
func (s *listingService) ListOwn(ctx context.Context, requester *model.User) ([]model.FoodListing, error) {
	if requester.Role != model.RoleDonor {
		return nil, errors.ErrForbidden
	}
	listings, err := s.listingRepo.ListByDonor(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("list own: %w", err)
	}
	s.resolveImageURLs(listings)
	return listings, nil
}

// ListClaimed returns listings the receiver holds a claim on, newest first.
func (s *listingService) ListClaimed(ctx context.Context, requester *model.User) ([]model.FoodListing, error) {
	if requester.Role != model.RoleReceiver {
		return nil, errors.ErrForbidden
	}
	listings, err := s.listingRepo.ListClaimedBy(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("list claimed: %w", err)
	}
	s.resolveImageURLs(listings)
	return listings, nil
}

func validateListingFields(maxClaims int, expiry time.Time, quantity decimal.Decimal) error {
	if maxClaims < 1 {
		return errors.ErrInvalidListing
	}
	if expiry.IsZero() {
		return errors.ErrInvalidListing
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidListing
	}
	return nil
}

// cleanupImage removes a local image file best-effort. Failures are logged,
// never surfaced: a stale file is acceptable, a failed request is not.
func (s *listingService) cleanupImage(ref string) {
	if !storage.IsLocalRef(ref) {
		return
	}
	if err := s.blobs.Remove(ref); err != nil {
		log.Printf("image cleanup failed for %s: %v", ref, err)
	}
}

// resolveImageURL rewrites a local image reference to an absolute URL.
// Placeholder and external URLs pass through unchanged.
func (s *listingService) resolveImageURL(l *model.FoodListing) {
	if storage.IsLocalRef(l.ImageRef) {
		l.ImageRef = s.baseURL + "/" + l.ImageRef
	}
}

func (s *listingService) resolveImageURLs(listings []model.FoodListing) {
	for i := range listings {
		s.resolveImageURL(&listings[i])
	}
}
