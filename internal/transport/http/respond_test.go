package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"timed-quiz-service/internal/domain"
)

func TestStatusForSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrTransferNotFound, http.StatusNotFound},
		{domain.ErrNoReviewSet, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotAccepting, http.StatusConflict},
		{domain.ErrUserExists, http.StatusConflict},
		{fmt.Errorf("save user: %w", domain.ErrNicknameTaken), http.StatusConflict},
		{domain.ErrInvalidUserID, http.StatusBadRequest},
		{domain.ErrInvalidNickname, http.StatusBadRequest},
		{domain.ErrInvalidPassphrase, http.StatusUnauthorized},
		{domain.ErrTransferInvalid, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
