package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"foodshare/internal/errors"
	"foodshare/internal/model"
	"foodshare/internal/repository"
	"foodshare/internal/storage"
)

// MockListingRepository is a mock implementation of ListingRepository.
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, listing *model.FoodListing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) Update(ctx context.Context, listing *model.FoodListing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FoodListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FoodListing), args.Error(1)
}

func (m *MockListingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.FoodListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FoodListing), args.Error(1)
}

func (m *MockListingRepository) ListAvailable(ctx context.Context, now time.Time) ([]model.FoodListing, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FoodListing), args.Error(1)
}

func (m *MockListingRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]model.FoodListing, error) {
	args := m.Called(ctx, donorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FoodListing), args.Error(1)
}

func (m *MockListingRepository) ListClaimedBy(ctx context.Context, receiverID uuid.UUID) ([]model.FoodListing, error) {
	args := m.Called(ctx, receiverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FoodListing), args.Error(1)
}

func (m *MockListingRepository) ListAll(ctx context.Context) ([]model.FoodListing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FoodListing), args.Error(1)
}

func (m *MockListingRepository) AppendClaim(ctx context.Context, listingID uuid.UUID, claim *model.Claim) error {
	args := m.Called(ctx, listingID, claim)
	return args.Error(0)
}

func (m *MockListingRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockListingRepository) CountAvailable(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockListingRepository) CountClaims(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// WithTransaction runs fn against the mock itself; the claim path's
// transactional calls land on the same expectations.
func (m *MockListingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.ListingRepository) error) error {
	return fn(ctx, m)
}

// MockBlobStore is a mock implementation of storage.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, filename, r)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Remove(ref string) error {
	args := m.Called(ref)
	return args.Error(0)
}

const testBaseURL = "http://localhost:8080"

func donor() *model.User {
	return &model.User{ID: uuid.New(), Name: "Daily Bread Bakery", Role: model.RoleDonor}
}

func receiver(name string) *model.User {
	return &model.User{ID: uuid.New(), Name: name, Role: model.RoleReceiver}
}

func openListing(maxClaims int) *model.FoodListing {
	return &model.FoodListing{
		ID:         uuid.New(),
		DonorID:    uuid.New(),
		DonorName:  "Daily Bread Bakery",
		Category:   model.CategoryBakery,
		Quantity:   decimal.NewFromInt(5),
		Location:   "Market St 12",
		ImageRef:   storage.PlaceholderImageURL,
		ExpiryTime: time.Now().Add(2 * time.Hour),
		MaxClaims:  maxClaims,
	}
}

func TestListingService_Claim(t *testing.T) {
	receiverA := receiver("Shelter A")

	tests := []struct {
		name          string
		requester     *model.User
		setupListing  func() *model.FoodListing
		expectAppend  bool
		expectedError error
	}{
		{
			name:      "allow on open listing",
			requester: receiverA,
			setupListing: func() *model.FoodListing {
				return openListing(1)
			},
			expectAppend: true,
		},
		{
			name:      "duplicate claim rejected",
			requester: receiverA,
			setupListing: func() *model.FoodListing {
				l := openListing(2)
				l.ClaimsCount = 1
				l.Claims = []model.Claim{{ListingID: l.ID, ReceiverID: receiverA.ID, ReceiverName: receiverA.Name}}
				return l
			},
			expectedError: errors.ErrAlreadyClaimed,
		},
		{
			name:      "full listing rejected",
			requester: receiver("Shelter B"),
			setupListing: func() *model.FoodListing {
				l := openListing(1)
				l.ClaimsCount = 1
				l.Claims = []model.Claim{{ListingID: l.ID, ReceiverID: receiverA.ID, ReceiverName: receiverA.Name}}
				return l
			},
			expectedError: errors.ErrListingFull,
		},
		{
			name:      "expired listing rejected with slots remaining",
			requester: receiverA,
			setupListing: func() *model.FoodListing {
				l := openListing(3)
				l.ExpiryTime = time.Now().Add(-time.Hour)
				return l
			},
			expectedError: errors.ErrListingExpired,
		},
		{
			name:      "expired wins over full",
			requester: receiver("Shelter B"),
			setupListing: func() *model.FoodListing {
				l := openListing(1)
				l.ExpiryTime = time.Now().Add(-time.Hour)
				l.ClaimsCount = 1
				l.Claims = []model.Claim{{ListingID: l.ID, ReceiverID: receiverA.ID, ReceiverName: receiverA.Name}}
				return l
			},
			expectedError: errors.ErrListingExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := tt.setupListing()
			mockRepo := new(MockListingRepository)
			mockRepo.On("FindByIDForUpdate", mock.Anything, listing.ID).Return(listing, nil)
			if tt.expectAppend {
				mockRepo.On("AppendClaim", mock.Anything, listing.ID, mock.MatchedBy(func(c *model.Claim) bool {
					return c.ReceiverID == tt.requester.ID && c.ReceiverName == tt.requester.Name
				})).Return(nil)
				claimed := *listing
				claimed.ClaimsCount = listing.ClaimsCount + 1
				claimed.Claims = append(claimed.Claims, model.Claim{
					ListingID:    listing.ID,
					ReceiverID:   tt.requester.ID,
					ReceiverName: tt.requester.Name,
				})
				mockRepo.On("FindByID", mock.Anything, listing.ID).Return(&claimed, nil)
			}

			svc := NewListingService(mockRepo, new(MockBlobStore), testBaseURL)
			result, err := svc.Claim(context.Background(), tt.requester, listing.ID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result)
				assert.True(t, result.ClaimedBy(tt.requester.ID))
				assert.LessOrEqual(t, result.ClaimsCount, result.MaxClaims)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestListingService_Claim_RoleAndNotFound(t *testing.T) {
	t.Run("donor cannot claim", func(t *testing.T) {
		mockRepo := new(MockListingRepository)
		svc := NewListingService(mockRepo, new(MockBlobStore), testBaseURL)

		result, err := svc.Claim(context.Background(), donor(), uuid.New())

		assert.Equal(t, errors.ErrForbidden, err)
		assert.Nil(t, result)
		// authorization fails before any evaluation
		mockRepo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("missing listing", func(t *testing.T) {
		id := uuid.New()
		mockRepo := new(MockListingRepository)
		mockRepo.On("FindByIDForUpdate", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

		svc := NewListingService(mockRepo, new(MockBlobStore), testBaseURL)
		result, err := svc.Claim(context.Background(), receiver("Shelter A"), id)

		assert.Equal(t, errors.ErrListingNotFound, err)
		assert.Nil(t, result)
	})
}

func TestListingService_Create(t *testing.T) {
	owner := donor()

	t.Run("success rewrites local image to absolute URL", func(t *testing.T) {
		mockRepo := new(MockListingRepository)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.FoodListing")).Return(nil)

		svc := NewListingService(mockRepo, new(MockBlobStore), testBaseURL)
		listing, err := svc.Create(context.Background(), owner, CreateListingInput{
			Category:   model.CategoryProduce,
			Quantity:   decimal.NewFromInt(10),
			Location:   "Market St 12",
			ExpiryTime: time.Now().Add(24 * time.Hour),
			MaxClaims:  3,
			ImageRef:   "uploads/abc.jpg",
		})

		assert.NoError(t, err)
		assert.Equal(t, owner.ID, listing.DonorID)
		assert.Equal(t, owner.Name, listing.DonorName)
		assert.Equal(t, testBaseURL+"/uploads/abc.jpg", listing.ImageRef)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid max claims removes uploaded image", func(t *testing.T) {
		mockBlobs := new(MockBlobStore)
		mockBlobs.On("Remove", "uploads/abc.jpg").Return(nil)

		svc := NewListingService(new(MockListingRepository), mockBlobs, testBaseURL)
		listing, err := svc.Create(context.Background(), owner, CreateListingInput{
			Quantity:   decimal.NewFromInt(10),
			Location:   "Market St 12",
			ExpiryTime: time.Now().Add(24 * time.Hour),
			MaxClaims:  0,
			ImageRef:   "uploads/abc.jpg",
		})

		assert.Equal(t, errors.ErrInvalidListing, err)
		assert.Nil(t, listing)
		mockBlobs.AssertExpectations(t)
	})

	t.Run("receiver cannot create", func(t *testing.T) {
		svc := NewListingService(new(MockListingRepository), new(MockBlobStore), testBaseURL)
		listing, err := svc.Create(context.Background(), receiver("Shelter A"), CreateListingInput{
			Quantity:   decimal.NewFromInt(1),
			ExpiryTime: time.Now().Add(time.Hour),
			MaxClaims:  1,
		})

		assert.Equal(t, errors.ErrForbidden, err)
		assert.Nil(t, listing)
	})
}

func TestListingService_Delete(t *testing.T) {
	owner := donor()
	admin := &model.User{ID: uuid.New(), Name: "Administrator", Role: model.RoleAdmin}
	otherDonor := donor()

	tests := []struct {
		name          string
		requester     *model.User
		imageRef      string
		expectDelete  bool
		expectCleanup bool
		expectedError error
	}{
		{
			name:          "owner deletes and local image is removed",
			requester:     owner,
			imageRef:      "uploads/pic.jpg",
			expectDelete:  true,
			expectCleanup: true,
		},
		{
			name:         "placeholder image leaves no file-system side effect",
			requester:    owner,
			imageRef:     storage.PlaceholderImageURL,
			expectDelete: true,
		},
		{
			name:          "admin deletes any listing",
			requester:     admin,
			imageRef:      "uploads/pic.jpg",
			expectDelete:  true,
			expectCleanup: true,
		},
		{
			name:          "other donor is rejected",
			requester:     otherDonor,
			imageRef:      "uploads/pic.jpg",
			expectedError: errors.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := openListing(2)
			listing.DonorID = owner.ID
			listing.ImageRef = tt.imageRef

			mockRepo := new(MockListingRepository)
			mockRepo.On("FindByID", mock.Anything, listing.ID).Return(listing, nil)
			if tt.expectDelete {
				mockRepo.On("Delete", mock.Anything, listing.ID).Return(nil)
			}

			mockBlobs := new(MockBlobStore)
			if tt.expectCleanup {
				mockBlobs.On("Remove", tt.imageRef).Return(nil)
			}

			svc := NewListingService(mockRepo, mockBlobs, testBaseURL)
			err := svc.Delete(context.Background(), tt.requester, listing.ID)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
			mockBlobs.AssertExpectations(t)
			if !tt.expectCleanup {
				mockBlobs.AssertNotCalled(t, "Remove", mock.Anything)
			}
		})
	}
}

func TestListingService_Update(t *testing.T) {
	owner := donor()

	t.Run("replacing image deletes the old local file", func(t *testing.T) {
		listing := openListing(2)
		listing.DonorID = owner.ID
		listing.ImageRef = "uploads/old.jpg"

		mockRepo := new(MockListingRepository)
		mockRepo.On("FindByID", mock.Anything, listing.ID).Return(listing, nil)
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.FoodListing")).Return(nil)

		mockBlobs := new(MockBlobStore)
		mockBlobs.On("Remove", "uploads/old.jpg").Return(nil)

		svc := NewListingService(mockRepo, mockBlobs, testBaseURL)
		newLocation := "Harbor St 3"
		updated, err := svc.Update(context.Background(), owner, listing.ID, UpdateListingInput{
			Location: &newLocation,
			ImageRef: "uploads/new.jpg",
		})

		assert.NoError(t, err)
		assert.Equal(t, "Harbor St 3", updated.Location)
		assert.Equal(t, testBaseURL+"/uploads/new.jpg", updated.ImageRef)
		mockRepo.AssertExpectations(t)
		mockBlobs.AssertExpectations(t)
	})

	t.Run("placeholder is never deleted on replacement", func(t *testing.T) {
		listing := openListing(2)
		listing.DonorID = owner.ID

		mockRepo := new(MockListingRepository)
		mockRepo.On("FindByID", mock.Anything, listing.ID).Return(listing, nil)
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.FoodListing")).Return(nil)

		mockBlobs := new(MockBlobStore)

		svc := NewListingService(mockRepo, mockBlobs, testBaseURL)
		_, err := svc.Update(context.Background(), owner, listing.ID, UpdateListingInput{
			ImageRef: "uploads/new.jpg",
		})

		assert.NoError(t, err)
		mockBlobs.AssertNotCalled(t, "Remove", mock.Anything)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		listing := openListing(2)
		listing.DonorID = owner.ID

		mockRepo := new(MockListingRepository)
		mockRepo.On("FindByID", mock.Anything, listing.ID).Return(listing, nil)

		svc := NewListingService(mockRepo, new(MockBlobStore), testBaseURL)
		updated, err := svc.Update(context.Background(), donor(), listing.ID, UpdateListingInput{})

		assert.Equal(t, errors.ErrForbidden, err)
		assert.Nil(t, updated)
	})
}

func TestListingService_Queries(t *testing.T) {
	t.Run("available restricted to receivers", func(t *testing.T) {
		svc := NewListingService(new(MockListingRepository), new(MockBlobStore), testBaseURL)
		listings, err := svc.ListAvailable(context.Background(), donor())
		assert.Equal(t, errors.ErrForbidden, err)
		assert.Nil(t, listings)
	})

	t.Run("own restricted to donors", func(t *testing.T) {
		svc := NewListingService(new(MockListingRepository), new(MockBlobStore), testBaseURL)
		listings, err := svc.ListOwn(context.Background(), receiver("Shelter A"))
		assert.Equal(t, errors.ErrForbidden, err)
		assert.Nil(t, listings)
	})

	t.Run("claimed restricted to receivers", func(t *testing.T) {
		svc := NewListingService(new(MockListingRepository), new(MockBlobStore), testBaseURL)
		listings, err := svc.ListClaimed(context.Background(), donor())
		assert.Equal(t, errors.ErrForbidden, err)
		assert.Nil(t, listings)
	})

	t.Run("available rewrites local image refs only", func(t *testing.T) {
		local := *openListing(2)
		local.ImageRef = "uploads/pic.jpg"
		external := *openListing(2)

		mockRepo := new(MockListingRepository)
		mockRepo.On("ListAvailable", mock.Anything, mock.Anything).Return([]model.FoodListing{local, external}, nil)

		svc := NewListingService(mockRepo, new(MockBlobStore), testBaseURL)
		listings, err := svc.ListAvailable(context.Background(), receiver("Shelter A"))

		assert.NoError(t, err)
		assert.Len(t, listings, 2)
		assert.Equal(t, testBaseURL+"/uploads/pic.jpg", listings[0].ImageRef)
		assert.Equal(t, storage.PlaceholderImageURL, listings[1].ImageRef)
	})
}
