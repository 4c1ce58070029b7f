package verdict

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusAndStatus(t *testing.T) {
	testCases := []struct {
		kind       Kind
		wantCode   int
		wantStatus string
	}{
		{AuthenticityRejected, http.StatusUnprocessableEntity, "rejected"},
		{DuplicateDetected, http.StatusUnprocessableEntity, "rejected"},
		{ValidationFailed, http.StatusUnprocessableEntity, "rejected"},
		{RateLimited, http.StatusTooManyRequests, "rejected"},
		{CooldownActive, http.StatusTooManyRequests, "rejected"},
		{ClassifierUnavailable, http.StatusServiceUnavailable, "error"},
		{NotFound, http.StatusNotFound, "error"},
		{InvalidInput, http.StatusBadRequest, "error"},
		{InternalError, http.StatusInternalServerError, "error"},
	}
	for _, tc := range testCases {
		e := New(tc.kind, "reason")
		assert.Equal(t, tc.wantCode, e.HTTPStatus(), tc.kind)
		assert.Equal(t, tc.wantStatus, e.Status(), tc.kind)
	}
}

func TestFromAndKindOf(t *testing.T) {
	assert.Nil(t, From(nil))
	assert.Equal(t, Kind(""), KindOf(nil))

	cause := errors.New("disk full")
	wrapped := fmt.Errorf("accept: %w", Wrap(InternalError, "Internal error", cause))
	assert.Equal(t, InternalError, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	plain := From(errors.New("boom"))
	assert.Equal(t, InternalError, plain.Kind)
	assert.Equal(t, "Internal error", plain.Reason)

	dup := New(DuplicateDetected, "Fraud Alert: Same physical object detected.")
	assert.Same(t, dup, From(dup))
	assert.Equal(t, "DuplicateDetected: Fraud Alert: Same physical object detected.", dup.Error())
}
