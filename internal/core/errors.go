// Package core contains the session, chat and responder services. Callers
// should match the sentinel errors below with errors.Is.
package core

import (
	"errors"

	"github.com/charla-app/charla/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveSession    = errors.New("no active session")
	ErrChatNotFound       = errors.New("chat not found")
	ErrValidation         = errors.New("validation failed")
)

// UserMessage maps an operation failure to the transient notice shown to
// the user. Unknown errors collapse into a generic message; none of them
// are fatal.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return "El correo electrónico ya está registrado"
	case errors.Is(err, ErrInvalidCredentials):
		return "Credenciales incorrectas"
	case errors.Is(err, ErrNoActiveSession):
		return "No hay sesión activa"
	case errors.Is(err, ErrChatNotFound):
		return "Chat no encontrado"
	case errors.Is(err, ErrValidation):
		return "Por favor completa todos los campos"
	default:
		return "Ha ocurrido un error inesperado"
	}
}
