package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindConnectivity        Kind = "CONNECTIVITY"
	KindValidation          Kind = "VALIDATION"
	KindSessionExpired      Kind = "SESSION_EXPIRED"
	KindForbidden           Kind = "FORBIDDEN"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindUnprocessable       Kind = "UNPROCESSABLE"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindServerError         Kind = "SERVER_ERROR"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindUnknown             Kind = "UNKNOWN"
)

// Sentinel errors, one per kind. Every AppError built by the constructors
// below unwraps to the sentinel of its kind.
var (
	ErrConnectivity        = errors.New("connectivity error")
	ErrValidation          = errors.New("validation error")
	ErrSessionExpired      = errors.New("session expired")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("resource not found")
	ErrConflict            = errors.New("conflict")
	ErrUnprocessable       = errors.New("unprocessable entity")
	ErrRateLimited         = errors.New("rate limited")
	ErrServerError         = errors.New("server error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUnknown             = errors.New("unknown error")
)

// User-facing fallback messages.
const (
	MsgConnectivity        = "Erro de conexão. Verifique sua conexão com a internet."
	MsgValidation          = "Dados inválidos enviados."
	MsgSessionExpired      = "Sessão expirada. Faça login novamente."
	MsgForbidden           = "Você não tem permissão para realizar esta ação."
	MsgNotFound            = "Recurso não encontrado."
	MsgConflict            = "Conflito de dados."
	MsgUnprocessable       = "Dados não processáveis."
	MsgRateLimited         = "Muitas tentativas. Tente novamente mais tarde."
	MsgServerError         = "Erro interno do servidor. Tente novamente mais tarde."
	MsgUpstreamUnavailable = "Serviço temporariamente indisponível. Tente novamente mais tarde."
)

// AppError is a classified backend failure. Message is the text shown to
// the user; Body keeps the raw response for diagnostics.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	StatusText string `json:"status_text,omitempty"`
	URL        string `json:"url,omitempty"`
	Body       string `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *AppError) Unwrap() []error {
	errs := []error{sentinelFor(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinelFor(k Kind) error {
	switch k {
	case KindConnectivity:
		return ErrConnectivity
	case KindValidation:
		return ErrValidation
	case KindSessionExpired:
		return ErrSessionExpired
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindUnprocessable:
		return ErrUnprocessable
	case KindRateLimited:
		return ErrRateLimited
	case KindServerError:
		return ErrServerError
	case KindUpstreamUnavailable:
		return ErrUpstreamUnavailable
	default:
		return ErrUnknown
	}
}

// Connectivity creates an error for a request that never got a response.
func Connectivity(cause error) *AppError {
	return &AppError{Kind: KindConnectivity, Message: MsgConnectivity, Err: cause}
}

// Validation creates a 400 error. An empty message falls back to the
// generic validation text.
func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: orDefault(message, MsgValidation), Status: http.StatusBadRequest}
}

// SessionExpired creates a 401 error.
func SessionExpired() *AppError {
	return &AppError{Kind: KindSessionExpired, Message: MsgSessionExpired, Status: http.StatusUnauthorized}
}

// Forbidden creates a 403 error.
func Forbidden() *AppError {
	return &AppError{Kind: KindForbidden, Message: MsgForbidden, Status: http.StatusForbidden}
}

// NotFound creates a 404 error.
func NotFound() *AppError {
	return &AppError{Kind: KindNotFound, Message: MsgNotFound, Status: http.StatusNotFound}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: orDefault(message, MsgConflict), Status: http.StatusConflict}
}

// Unprocessable creates a 422 error.
func Unprocessable(message string) *AppError {
	return &AppError{Kind: KindUnprocessable, Message: orDefault(message, MsgUnprocessable), Status: http.StatusUnprocessableEntity}
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return &AppError{Kind: KindRateLimited, Message: MsgRateLimited, Status: http.StatusTooManyRequests}
}

// ServerError creates a 500 error.
func ServerError() *AppError {
	return &AppError{Kind: KindServerError, Message: MsgServerError, Status: http.StatusInternalServerError}
}

// UpstreamUnavailable creates a 502/503/504 error.
func UpstreamUnavailable(status int) *AppError {
	return &AppError{Kind: KindUpstreamUnavailable, Message: MsgUpstreamUnavailable, Status: status}
}

// Unknown creates an error for any status outside the taxonomy.
func Unknown(status int, statusText string) *AppError {
	return &AppError{
		Kind:       KindUnknown,
		Message:    fmt.Sprintf("Erro %d: %s", status, statusText),
		Status:     status,
		StatusText: statusText,
	}
}

// FromStatus classifies an HTTP status. serverMessage is only used by the
// kinds that surface backend text (400, 409, 422).
func FromStatus(status int, statusText, serverMessage string) *AppError {
	var e *AppError
	switch status {
	case 0:
		e = Connectivity(nil)
	case http.StatusBadRequest:
		e = Validation(serverMessage)
	case http.StatusUnauthorized:
		e = SessionExpired()
	case http.StatusForbidden:
		e = Forbidden()
	case http.StatusNotFound:
		e = NotFound()
	case http.StatusConflict:
		e = Conflict(serverMessage)
	case http.StatusUnprocessableEntity:
		e = Unprocessable(serverMessage)
	case http.StatusTooManyRequests:
		e = RateLimited()
	case http.StatusInternalServerError:
		e = ServerError()
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e = UpstreamUnavailable(status)
	default:
		return Unknown(status, statusText)
	}
	e.StatusText = statusText
	return e
}

// KindOf returns the kind of a classified error, or "" when err is not one.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsSessionExpired reports whether err is a classified 401.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return "Ocorreu um erro inesperado"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
