package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
)

func (s *Server) ListRevenueShares(c *gin.Context) {
	var req sharedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor := actorFromContext(c)
	providerID, err := scopeProvider(actor, req.ProviderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if actor.Role != authorization.RoleProvider {
		// Reading another provider's ledger needs the wider grant.
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, authorization.ObjectRevenueShare, authorization.ActionRevenueShareViewAll); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	req.ProviderID = providerID

	resp, err := s.shareSvc.ListByProvider(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
