package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"foodshare/internal/storage"
)

// Listing categories. Unknown or empty values fall back to CategoryOther.
const (
	CategoryProduce  = "Produce"
	CategoryBakery   = "Bakery"
	CategoryDairy    = "Dairy"
	CategoryMeat     = "Meat"
	CategoryPantry   = "Pantry"
	CategoryPrepared = "Prepared"
	CategoryOther    = "Other"
)

// Categories lists the closed set of valid listing categories.
var Categories = []string{
	CategoryProduce,
	CategoryBakery,
	CategoryDairy,
	CategoryMeat,
	CategoryPantry,
	CategoryPrepared,
	CategoryOther,
}

// NormalizeCategory returns the category if it is valid, CategoryOther otherwise.
func NormalizeCategory(category string) string {
	for _, c := range Categories {
		if c == category {
			return c
		}
	}
	return CategoryOther
}

// FoodListing represents a donation offer posted by a donor. ClaimsCount is
// denormalized from the claim rows so availability filtering and the
// capacity check are plain column comparisons.
type FoodListing struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	DonorID         uuid.UUID       `json:"donor_id" gorm:"type:char(36);not null;index"`
	DonorName       string          `json:"donor_name" gorm:"size:255;not null"` // denormalized, may go stale on rename
	Category        string          `json:"category" gorm:"size:20;not null;default:'Other';index"`
	Description     string          `json:"description" gorm:"type:text"`
	Quantity        decimal.Decimal `json:"quantity" gorm:"type:decimal(10,2);not null"`
	Location        string          `json:"location" gorm:"size:255;not null"`
	ImageRef        string          `json:"image_url" gorm:"size:512;not null"`
	ManufactureTime time.Time       `json:"manufacture_time"`
	ExpiryTime      time.Time       `json:"expiry_time" gorm:"not null;index"`
	MaxClaims       int             `json:"max_claims" gorm:"not null"`
	ClaimsCount     int             `json:"claims_count" gorm:"not null;default:0"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Claims []Claim `json:"claims,omitempty" gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID and defaults before creating the record.
func (l *FoodListing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.ImageRef == "" {
		l.ImageRef = storage.PlaceholderImageURL
	}
	l.Category = NormalizeCategory(l.Category)
	return nil
}

// Expired reports whether the listing's expiry time has passed at now.
func (l *FoodListing) Expired(now time.Time) bool {
	return !now.Before(l.ExpiryTime)
}

// Full reports whether all claim slots are taken.
func (l *FoodListing) Full() bool {
	return l.ClaimsCount >= l.MaxClaims
}

// ClaimedBy reports whether the receiver already holds a claim. Claims must
// be preloaded for this to be meaningful.
func (l *FoodListing) ClaimedBy(receiverID uuid.UUID) bool {
	for _, c := range l.Claims {
		if c.ReceiverID == receiverID {
			return true
		}
	}
	return false
}

// Claim records one receiver's claim on a listing. The (listing, receiver)
// pair is unique at the schema level.
type Claim struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	ListingID    uuid.UUID `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_listing_receiver"`
	ReceiverID   uuid.UUID `json:"receiver_id" gorm:"type:char(36);not null;uniqueIndex:idx_listing_receiver"`
	ReceiverName string    `json:"receiver_name" gorm:"size:255;not null"` // denormalized, may go stale on rename
	CreatedAt    time.Time `json:"created_at"`
}
