package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTxRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := From(ctx)
	assert.False(t, ok, "empty context must not yield a transaction")

	stored := &sql.Tx{}
	ctx = WithTx(ctx, stored)

	got, ok := From(ctx)
	assert.True(t, ok)
	assert.Same(t, stored, got)
}

func TestWithTxNilIsNoop(t *testing.T) {
	ctx := WithTx(context.Background(), nil)

	_, ok := From(ctx)
	assert.False(t, ok)
}
