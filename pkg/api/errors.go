package api

import (
	"net/http"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Public error codes that are not engine codes.
const (
	codeAuthFailed  = "AuthFailed"
	codeBadRequest  = "BadRequest"
	codeUnavailable = "Unavailable"
	codeInternal    = "Internal"
)

// publicError maps an engine error to an HTTP status and a caller-visible
// code. Authorization sub-reasons never leave the server. On gated routes a
// missing account is also reported as AuthFailed.
func publicError(err error, gated bool) (int, ErrorResponse) {
	code := bank.CodeOf(err)

	switch bank.KindOf(err) {
	case bank.KindValidation:
		return http.StatusBadRequest, ErrorResponse{Error: string(code), Message: err.Error()}

	case bank.KindAuthorization:
		if code == bank.CodeNoSuchAccount && !gated {
			return http.StatusNotFound, ErrorResponse{Error: string(code), Message: "account not found"}
		}
		return http.StatusUnauthorized, ErrorResponse{Error: codeAuthFailed, Message: "authorization failed"}

	case bank.KindBusinessRule:
		status := http.StatusUnprocessableEntity
		switch code {
		case bank.CodeAlreadyRegistered:
			status = http.StatusConflict
		case bank.CodePositionNotFound, bank.CodeSymbolNotFound:
			status = http.StatusNotFound
		}
		return status, ErrorResponse{Error: string(code), Message: err.Error()}

	case bank.KindDependency:
		if code == bank.CodeTimeout {
			return http.StatusGatewayTimeout, ErrorResponse{Error: string(code), Message: "upstream timed out"}
		}
		if code == "" {
			code = codeUnavailable
		}
		return http.StatusServiceUnavailable, ErrorResponse{Error: string(code), Message: "service temporarily unavailable"}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: codeInternal, Message: "internal error"}
	}
}
