package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
)

func (s *Server) CreatePricingSnapshot(c *gin.Context) {
	var req pricingdomain.CreateRequest
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.PackageType = strings.TrimSpace(req.PackageType)

	resp, err := s.pricingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPricingSnapshots(c *gin.Context) {
	resp, err := s.pricingSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("package_type")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
