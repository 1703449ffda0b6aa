package gateway

import (
	"errors"
	"net/http"
)

// StatusOf maps a gateway error to the status and message the console
// answers with. ok is false for errors that did not come from the gateway.
func StatusOf(err error) (status int, message string, ok bool) {
	var failure *Failure
	switch {
	case errors.As(err, &failure):
		switch failure.Status {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, "Sesi backend berakhir, silakan masuk kembali", true
		case http.StatusForbidden, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
			return failure.Status, failure.Message, true
		}
		return http.StatusBadGateway, failure.Message, true
	case IsTransport(err):
		return http.StatusBadGateway, "Server tidak dapat dihubungi", true
	case errors.Is(err, ErrUnexpectedShape):
		return http.StatusBadGateway, "Respons server tidak dikenali", true
	}
	return 0, "", false
}
