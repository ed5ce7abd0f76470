package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodshare/internal/model"
)

// ListingRepository defines listing persistence operations, including the
// three fixed consumer views and the transactional claim path.
type ListingRepository interface {
	Create(ctx context.Context, listing *model.FoodListing) error
	Update(ctx context.Context, listing *model.FoodListing) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FoodListing, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.FoodListing, error)
	ListAvailable(ctx context.Context, now time.Time) ([]model.FoodListing, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]model.FoodListing, error)
	ListClaimedBy(ctx context.Context, receiverID uuid.UUID) ([]model.FoodListing, error)
	ListAll(ctx context.Context) ([]model.FoodListing, error)
	AppendClaim(ctx context.Context, listingID uuid.UUID, claim *model.Claim) error
	Count(ctx context.Context) (int64, error)
	CountAvailable(ctx context.Context, now time.Time) (int64, error)
	CountClaims(ctx context.Context) (int64, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo ListingRepository) error) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// Create creates a new listing.
func (r *listingRepository) Create(ctx context.Context, listing *model.FoodListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

// Update updates an existing listing.
func (r *listingRepository) Update(ctx context.Context, listing *model.FoodListing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

// Delete removes a listing and, via the FK constraint, its claim rows.
func (r *listingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.FoodListing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a listing with its claims by ID.
func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FoodListing, error) {
	var listing model.FoodListing
	if err := r.db.WithContext(ctx).Preload("Claims").Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDForUpdate finds a listing by ID with a row-level lock. Used by the
// claim path so two concurrent claims on the same listing serialize.
func (r *listingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.FoodListing, error) {
	var listing model.FoodListing
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Claims").Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListAvailable lists unexpired listings with free slots, soonest-expiring first.
func (r *listingRepository) ListAvailable(ctx context.Context, now time.Time) ([]model.FoodListing, error) {
	var listings []model.FoodListing
	err := r.db.WithContext(ctx).Preload("Claims").
		Where("expiry_time > ? AND claims_count < max_claims", now).
		Order("expiry_time ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ListByDonor lists a donor's own listings, newest first.
func (r *listingRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]model.FoodListing, error) {
	var listings []model.FoodListing
	err := r.db.WithContext(ctx).Preload("Claims").
		Where("donor_id = ?", donorID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ListClaimedBy lists listings the receiver holds a claim on, newest first.
func (r *listingRepository) ListClaimedBy(ctx context.Context, receiverID uuid.UUID) ([]model.FoodListing, error) {
	var listings []model.FoodListing
	err := r.db.WithContext(ctx).Preload("Claims").
		Joins("JOIN claims ON claims.listing_id = food_listings.id AND claims.receiver_id = ?", receiverID).
		Order("food_listings.created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ListAll lists every listing, newest first.
func (r *listingRepository) ListAll(ctx context.Context) ([]model.FoodListing, error) {
	var listings []model.FoodListing
	err := r.db.WithContext(ctx).Preload("Claims").
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// AppendClaim inserts a claim row and bumps the denormalized counter. The
// unique (listing_id, receiver_id) index rejects duplicates at the schema
// level should the caller's check be bypassed.
func (r *listingRepository) AppendClaim(ctx context.Context, listingID uuid.UUID, claim *model.Claim) error {
	claim.ListingID = listingID
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.FoodListing{}).
		Where("id = ?", listingID).
		Update("claims_count", gorm.Expr("claims_count + 1")).Error
}

// Count returns the total number of listings.
func (r *listingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.FoodListing{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountAvailable returns the number of unexpired listings with free slots.
func (r *listingRepository) CountAvailable(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FoodListing{}).
		Where("expiry_time > ? AND claims_count < max_claims", now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountClaims returns the total number of claim rows.
func (r *listingRepository) CountClaims(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Claim{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// WithTransaction executes a function within a database transaction.
func (r *listingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo ListingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &listingRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
