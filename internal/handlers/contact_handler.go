package handlers

import (
	"net/http"

	"mentorhub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// ContactHandler отдает список идентичностей, с которыми вызывающий
// может (или сможет после одобрения) переписываться.
type ContactHandler struct {
	*BaseHandler
	identityService services.IdentityService
}

func NewContactHandler(base *BaseHandler, identityService services.IdentityService) *ContactHandler {
	return &ContactHandler{
		BaseHandler:     base,
		identityService: identityService,
	}
}

func (h *ContactHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	contacts := rg.Group("/contacts")
	contacts.Use(authMW)
	{
		contacts.GET("", h.ListContacts)
	}
}

func (h *ContactHandler) ListContacts(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	response, err := h.identityService.Contacts(db, identity)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
