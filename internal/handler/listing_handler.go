package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"foodshare/internal/errors"
	"foodshare/internal/model"
	"foodshare/internal/service"
	"foodshare/internal/storage"
)

// ListingHandler handles listing endpoints.
type ListingHandler struct {
	listingService service.ListingService
	blobs          storage.BlobStore
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(listingService service.ListingService, blobs storage.BlobStore) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		blobs:          blobs,
	}
}

// CreateListingRequest represents a new listing, sent as multipart form data
// with an optional "image" file part.
type CreateListingRequest struct {
	Category        string `form:"category"`
	Description     string `form:"description" validate:"required"`
	Quantity        string `form:"quantity" validate:"required"`
	Location        string `form:"location" validate:"required"`
	ManufactureTime string `form:"manufacture_time"`
	ExpiryTime      string `form:"expiry_time" validate:"required"`
	MaxClaims       int    `form:"max_claims" validate:"required,min=1"`
}

// UpdateListingRequest represents a partial listing edit; absent fields are
// left unchanged.
type UpdateListingRequest struct {
	Category        *string `form:"category"`
	Description     *string `form:"description"`
	Quantity        *string `form:"quantity"`
	Location        *string `form:"location"`
	ManufactureTime *string `form:"manufacture_time"`
	ExpiryTime      *string `form:"expiry_time"`
	MaxClaims       *int    `form:"max_claims"`
}

// Create godoc
// @Summary Create a food listing
// @Tags listings
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param category formData string false "Category"
// @Param description formData string true "Description"
// @Param quantity formData string true "Quantity"
// @Param location formData string true "Pickup location"
// @Param manufacture_time formData string false "Manufacture time (RFC3339)"
// @Param expiry_time formData string true "Expiry time (RFC3339)"
// @Param max_claims formData int true "Maximum claim count"
// @Param image formData file false "Listing image"
// @Success 201 {object} model.FoodListing
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /listings [post]
func (h *ListingHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid quantity",
			Code:  "INVALID_QUANTITY",
		})
	}
	expiry, err := time.Parse(time.RFC3339, req.ExpiryTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid expiry_time",
			Code:  "INVALID_TIMESTAMP",
		})
	}
	var manufacture time.Time
	if req.ManufactureTime != "" {
		if manufacture, err = time.Parse(time.RFC3339, req.ManufactureTime); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid manufacture_time",
				Code:  "INVALID_TIMESTAMP",
			})
		}
	}

	imageRef, err := h.saveUploadedImage(c)
	if err != nil {
		return err
	}

	listing, err := h.listingService.Create(c.Request().Context(), user, service.CreateListingInput{
		Category:        req.Category,
		Description:     req.Description,
		Quantity:        quantity,
		Location:        req.Location,
		ManufactureTime: manufacture,
		ExpiryTime:      expiry,
		MaxClaims:       req.MaxClaims,
		ImageRef:        imageRef,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, listing)
}

// Update godoc
// @Summary Edit an owned listing
// @Tags listings
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param category formData string false "Category"
// @Param description formData string false "Description"
// @Param quantity formData string false "Quantity"
// @Param location formData string false "Pickup location"
// @Param manufacture_time formData string false "Manufacture time (RFC3339)"
// @Param expiry_time formData string false "Expiry time (RFC3339)"
// @Param max_claims formData int false "Maximum claim count"
// @Param image formData file false "Replacement image"
// @Success 200 {object} model.FoodListing
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /listings/{id} [put]
func (h *ListingHandler) Update(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid listing id")
	}

	var req UpdateListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	in := service.UpdateListingInput{
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		MaxClaims:   req.MaxClaims,
	}
	if req.Quantity != nil {
		quantity, err := decimal.NewFromString(*req.Quantity)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid quantity",
				Code:  "INVALID_QUANTITY",
			})
		}
		in.Quantity = &quantity
	}
	if req.ManufactureTime != nil {
		t, err := time.Parse(time.RFC3339, *req.ManufactureTime)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid manufacture_time",
				Code:  "INVALID_TIMESTAMP",
			})
		}
		in.ManufactureTime = &t
	}
	if req.ExpiryTime != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiryTime)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid expiry_time",
				Code:  "INVALID_TIMESTAMP",
			})
		}
		in.ExpiryTime = &t
	}

	if in.ImageRef, err = h.saveUploadedImage(c); err != nil {
		return err
	}

	listing, err := h.listingService.Update(c.Request().Context(), user, id, in)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, listing)
}

// Delete godoc
// @Summary Delete a listing (owner or admin)
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /listings/{id} [delete]
func (h *ListingHandler) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid listing id")
	}

	if err := h.listingService.Delete(c.Request().Context(), user, id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "listing deleted"})
}

// Claim godoc
// @Summary Claim a listing slot
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} model.FoodListing
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /listings/{id}/claim [post]
func (h *ListingHandler) Claim(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid listing id")
	}

	listing, err := h.listingService.Claim(c.Request().Context(), user, id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, listing)
}

// ListAvailable godoc
// @Summary List claimable listings, soonest-expiring first
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.FoodListing
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /listings/available [get]
func (h *ListingHandler) ListAvailable(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	listings, err := h.listingService.ListAvailable(c.Request().Context(), user)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, listings)
}

// ListMine godoc
// @Summary List the donor's own listings, newest first
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.FoodListing
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /listings/mine [get]
func (h *ListingHandler) ListMine(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	listings, err := h.listingService.ListOwn(c.Request().Context(), user)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, listings)
}

// ListClaimed godoc
// @Summary List listings claimed by the receiver, newest first
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.FoodListing
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /listings/claimed [get]
func (h *ListingHandler) ListClaimed(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	listings, err := h.listingService.ListClaimed(c.Request().Context(), user)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, listings)
}

// saveUploadedImage stores the optional "image" multipart file and returns
// its blob reference, or "" when no file was sent.
func (h *ListingHandler) saveUploadedImage(c echo.Context) (string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return "", nil // no image part
	}
	src, err := fh.Open()
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "unreadable image upload",
			Code:  "INVALID_IMAGE",
		})
	}
	defer src.Close()

	ref, err := h.blobs.Save(c.Request().Context(), fh.Filename, src)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to store image",
			Code:  "IMAGE_STORE_FAILED",
		})
	}
	return ref, nil
}

// currentUser returns the identity resolved by the auth middleware.
func currentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get("identity").(*model.User)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
	}
	return user, nil
}
