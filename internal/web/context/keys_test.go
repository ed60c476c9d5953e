package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))

	ctx = SetRequestID(ctx, "abc")
	assert.Equal(t, "abc", GetRequestID(ctx))
}

func TestMediaType(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetMediaType(ctx))

	ctx = SetMediaType(ctx, "application/vnd.api+json")
	assert.Equal(t, "application/vnd.api+json", GetMediaType(ctx))
	assert.Empty(t, GetRequestID(ctx))
}
