package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/services"
)

// AvatarController lists the preset avatars offered at registration
type AvatarController struct {
	avatars *services.AvatarCatalog
}

func NewAvatarController(avatars *services.AvatarCatalog) *AvatarController {
	return &AvatarController{avatars: avatars}
}

// ListAvatars handles GET /api/v1/avatars
func (ac *AvatarController) ListAvatars(c *gin.Context) {
	respondOK(c, http.StatusOK, ac.avatars.List(c.Request.Context()))
}
