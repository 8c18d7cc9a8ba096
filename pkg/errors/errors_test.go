package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_HTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeUnauthenticated: http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeBadRequest:      http.StatusBadRequest,
		CodeInferenceError:  http.StatusInternalServerError,
		CodeStoreError:      http.StatusInternalServerError,
		ErrorCode("BOGUS"):  http.StatusInternalServerError,
	}

	for code, want := range cases {
		assert.Equal(t, want, NewAppError(code, "x", nil).HTTPStatus(), "code %s", code)
	}
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	inner := Store("Save error", fmt.Errorf("connection reset"))
	wrapped := fmt.Errorf("history: %w", inner)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeStoreError, appErr.Code)
	assert.True(t, HasCode(wrapped, CodeStoreError))
	assert.False(t, HasCode(wrapped, CodeBadRequest))
}

func TestWrapError_KeepsCode(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	err := WrapError(BadRequest("Invalid method"), "simplify")
	assert.True(t, HasCode(err, CodeBadRequest))

	err = WrapError(fmt.Errorf("boom"), "unexpected")
	assert.True(t, HasCode(err, CodeInternalError))
}

func TestToErrorResponse(t *testing.T) {
	resp := Forbidden("The user doesn't have enough privileges").ToErrorResponse("trace-1")

	assert.Equal(t, "The user doesn't have enough privileges", resp.Detail)
	assert.Equal(t, CodeForbidden, resp.Error.Code)
	assert.Equal(t, "trace-1", resp.Error.TraceID)
}
