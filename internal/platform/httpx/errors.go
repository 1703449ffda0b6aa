// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors wrapped by domain packages.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusFor maps a domain error onto a status and a user-facing message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Data tidak ditemukan"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "Data sedang diproses atau sudah berubah"
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity, "Data tidak valid"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "Anda tidak memiliki izin untuk tindakan ini"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "Silakan masuk terlebih dahulu"
	}
	return http.StatusInternalServerError, "Terjadi kesalahan"
}

// RespondError writes the envelope for err using StatusFor.
func RespondError(w http.ResponseWriter, err error) {
	status, message := StatusFor(err)
	Fail(w, status, message)
}
