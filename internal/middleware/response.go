package middleware

import (
	"net/http"

	apperrors "github.com/auth247/pin-server-go/internal/errors"
	"github.com/auth247/pin-server-go/internal/httputil"
)

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	httputil.WriteErrorWithStatus(w, httputil.StatusFromCode(err.Code), err)
}
