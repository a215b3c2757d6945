package reqid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntoFrom(t *testing.T) {
	t.Parallel()

	require.Empty(t, From(context.Background()))

	ctx := Into(context.Background(), "rid-1")
	require.Equal(t, "rid-1", From(ctx))
}
