package handler

import (
	"fmt"
	"math"
	"net/http"
	"time"

	apperrors "github.com/auth247/pin-server-go/internal/errors"
	"github.com/auth247/pin-server-go/internal/httputil"
)

var reasonMessages = map[apperrors.ErrorCode]string{
	apperrors.ErrCodeUnknownUser:           "User not found",
	apperrors.ErrCodeRateLimited:           "Too many codes requested. Please try again later.",
	apperrors.ErrCodeNoPendingVerification: "No verification is pending",
	apperrors.ErrCodeExpired:               "The code has expired",
	apperrors.ErrCodeTooManyAttempts:       "Too many incorrect attempts",
	apperrors.ErrCodeInvalidCode:           "The code is incorrect",
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeReason writes a domain failure reason with its mapped status.
func writeReason(w http.ResponseWriter, reason apperrors.ErrorCode) {
	httputil.WriteErrorWithStatus(w, httputil.StatusFromCode(reason), apperrors.New(reason, reasonMessages[reason]))
}

func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
}
