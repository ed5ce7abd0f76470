package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryBakery, NormalizeCategory("Bakery"))
	assert.Equal(t, CategoryOther, NormalizeCategory(""))
	assert.Equal(t, CategoryOther, NormalizeCategory("bakery"))
	assert.Equal(t, CategoryOther, NormalizeCategory("Electronics"))
}

func TestFoodListing_Expired(t *testing.T) {
	now := time.Now()
	l := FoodListing{ExpiryTime: now.Add(time.Minute)}

	assert.False(t, l.Expired(now))
	assert.True(t, l.Expired(now.Add(time.Minute)))  // boundary: now == expiry counts as expired
	assert.True(t, l.Expired(now.Add(2*time.Minute)))
}

func TestFoodListing_Full(t *testing.T) {
	l := FoodListing{MaxClaims: 2}
	assert.False(t, l.Full())

	l.ClaimsCount = 1
	assert.False(t, l.Full())

	l.ClaimsCount = 2
	assert.True(t, l.Full())
}

func TestFoodListing_ClaimedBy(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l := FoodListing{Claims: []Claim{{ReceiverID: a, ReceiverName: "Shelter A"}}}

	assert.True(t, l.ClaimedBy(a))
	assert.False(t, l.ClaimedBy(b))
}
