package authorization

import (
	"context"

	obscontext "github.com/smallbiznis/revenueshare/internal/observability/context"
)

// Service decides whether an actor may perform an action on an object.
type Service interface {
	Authorize(ctx context.Context, actor obscontext.Actor, object string, action string) error
}
