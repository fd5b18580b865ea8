package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct coded error", func(t *testing.T) {
		err := New(CodeLastIdentity, "cannot unlink the only identity")
		assert.True(t, HasCode(err, CodeLastIdentity))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("wrapped cause is preserved", func(t *testing.T) {
		cause := errors.New("no rows")
		err := Wrap(cause, CodePendingLinkNotFound, "code already consumed")
		assert.True(t, HasCode(err, CodePendingLinkNotFound))
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("fmt wrapping keeps the code reachable", func(t *testing.T) {
		err := fmt.Errorf("consume: %w", New(CodePendingLinkExpired, "expired"))
		assert.True(t, HasCode(err, CodePendingLinkExpired))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidToken:        http.StatusUnauthorized,
		CodeLastIdentity:        http.StatusBadRequest,
		CodePendingLinkNotFound: http.StatusBadRequest,
		CodePendingLinkExpired:  http.StatusGone,
		CodeMergeFailed:         http.StatusInternalServerError,
		CodeAlreadyLinked:       http.StatusInternalServerError,
		CodeConflict:            http.StatusConflict,
	}
	for code, want := range cases {
		require.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
