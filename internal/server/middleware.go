package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
)

// RequireActor rejects requests the gateway did not attach an identity to.
// The request logger has already copied the actor headers into the context.
func (s *Server) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := obscontext.ActorValue(c.Request.Context())
		if !ok || strings.TrimSpace(actor.ID) == "" || strings.TrimSpace(actor.Role) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := obscontext.ActorValue(c.Request.Context())
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) obscontext.Actor {
	actor, _ := obscontext.ActorValue(c.Request.Context())
	actor.Role = strings.ToLower(strings.TrimSpace(actor.Role))
	return actor
}

// scopeProvider resolves the provider a listing is restricted to. Providers
// only ever see their own rows; other roles may filter freely.
func scopeProvider(actor obscontext.Actor, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if actor.Role != authorization.RoleProvider {
		return requested, nil
	}
	if requested != "" && requested != actor.ID {
		return "", ErrForbidden
	}
	return actor.ID, nil
}
