package pkgcontext_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pkgcontext "github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/pkg/context"

	"github.com/stretchr/testify/assert"
)

func TestWithCancelOnAnotherContext(t *testing.T) {
	other, cancelOther := context.WithCancel(context.Background())
	ctx, cancel := pkgcontext.WithCancelOnAnotherContext(context.Background(), other)
	defer cancel()

	assert.NoError(t, ctx.Err())
	cancelOther()
	assert.Eventually(t, func() bool { return ctx.Err() != nil }, time.Second, time.Millisecond)
}

func TestWithCancelOnAnotherContextReleased(t *testing.T) {
	other, cancelOther := context.WithCancel(context.Background())
	defer cancelOther()
	ctx, cancel := pkgcontext.WithCancelOnAnotherContext(context.Background(), other)

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.NoError(t, other.Err())
}

func TestIsContextError(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	assert.True(t, pkgcontext.IsContextError(cancelled, fmt.Errorf("error waiting: %w", context.Canceled)))
	assert.True(t, pkgcontext.IsContextError(expired, context.DeadlineExceeded))
	assert.False(t, pkgcontext.IsContextError(cancelled, context.DeadlineExceeded))
	assert.False(t, pkgcontext.IsContextError(cancelled, errors.New("boom")))
	assert.False(t, pkgcontext.IsContextError(context.Background(), context.Canceled))
	assert.False(t, pkgcontext.IsContextError(cancelled, nil))
}
