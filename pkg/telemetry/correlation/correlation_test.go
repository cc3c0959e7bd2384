package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "checkout-42")
	ctx, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "checkout-42", cid)
	assert.Equal(t, "checkout-42", ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	assert.Len(t, cid, 26)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))
	assert.Empty(t, ExtractCorrelationID(ContextWithCorrelationID(context.Background(), "")))
}
