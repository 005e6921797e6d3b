package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/middleware"
	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/services"
)

// CreateUserRequest is the profile supplied by the client when no identity
// provider profile is available
type CreateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"omitempty,email"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"omitempty,email"`
	AvatarURL string `json:"avatar_url"`
}

// ProfileResponse is the caller's own profile
type ProfileResponse struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// UserController manages the caller's profile. userInfo is nil when tokens
// are issued locally and the profile comes from the request body.
type UserController struct {
	identity services.IdentityDirectory
	userInfo services.UserInfoProvider
	media    *services.MediaResolver
}

func NewUserController(identity services.IdentityDirectory, userInfo services.UserInfoProvider, media *services.MediaResolver) *UserController {
	return &UserController{identity: identity, userInfo: userInfo, media: media}
}

func (uc *UserController) profile(c *gin.Context, user *models.User) ProfileResponse {
	return ProfileResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Name:      user.DisplayName(),
		Email:     user.Email,
		AvatarURL: uc.media.URL(c.Request.Context(), user.AvatarURL),
		CreatedAt: user.CreatedAt,
	}
}

// CreateUser handles POST /api/v1/users - registers the token subject.
// With an identity provider the profile is read from its /userinfo endpoint.
func (uc *UserController) CreateUser(c *gin.Context) {
	subject, err := middleware.GetUserID(c)
	if err != nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	user := models.User{AuthSubject: subject}

	if uc.userInfo != nil {
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			respondFailure(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
			return
		}

		info, err := uc.userInfo.GetUserInfo(c.Request.Context(), accessToken)
		if err != nil {
			slog.Error("failed to fetch user info", "subject", subject, "error", err)
			respondFailure(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
			return
		}

		user.FirstName, user.LastName = info.SplitName()
		user.Email = info.Email
		user.AvatarURL = info.Picture
	} else {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
			return
		}
		user.FirstName = req.FirstName
		user.LastName = req.LastName
		user.Email = req.Email
		user.AvatarURL = req.AvatarURL
	}

	if err := uc.identity.Create(c.Request.Context(), &user); err != nil {
		respondError(c, err)
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	respondOK(c, http.StatusCreated, uc.profile(c, &user))
}

// GetMyProfile handles GET /api/v1/users/me
func (uc *UserController) GetMyProfile(c *gin.Context) {
	user, err := middleware.GetCaller(c)
	if err != nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	respondOK(c, http.StatusOK, uc.profile(c, user))
}

// UpdateMyProfile handles PUT /api/v1/users/me; omitted fields are left unchanged
func (uc *UserController) UpdateMyProfile(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	user, err := uc.identity.UpdateProfile(c.Request.Context(), callerID, services.ProfileChanges{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, uc.profile(c, user))
}

// ListUsers handles GET /api/v1/users - the public view of every registered user
func (uc *UserController) ListUsers(c *gin.Context) {
	users, err := uc.identity.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.UserView, 0, len(users))
	for _, user := range users {
		out = append(out, uc.media.UserView(c.Request.Context(), user, false))
	}
	respondOK(c, http.StatusOK, out)
}
