package shared

import "errors"

// Catalog strings for the wire-visible error vocabulary (§7): downstream
// BusinessMessageReject/Logout text fields use these verbatim.
const (
	ErrorNotReady        = "NOT_READY"
	ErrorSuccess         = "SUCCESS"
	ErrorNotLoggedOn     = "NOT_LOGGED_ON"
	ErrorAlreadyLoggedOn = "ALREADY_LOGGED_ON"
	ErrorInvalidPassword = "INVALID_PASSWORD"
)

// Sentinel errors returned by Shared's operations; callers that need the
// catalog string for a wire reject use CatalogText.
var (
	ErrAlreadyExists    = errors.New("shared: user already exists with different credentials")
	ErrUnknownUser      = errors.New("shared: no such user")
	ErrNotReady         = errors.New("shared: " + ErrorNotReady)
	ErrAlreadyLoggedOn  = errors.New("shared: " + ErrorAlreadyLoggedOn)
	ErrInvalidPassword  = errors.New("shared: " + ErrorInvalidPassword)
	ErrNotLoggedOn      = errors.New("shared: " + ErrorNotLoggedOn)
)

// CatalogText maps a sentinel error to its wire-visible catalog string,
// for use in a Logout/BusinessMessageReject text field.
func CatalogText(err error) string {
	switch err {
	case ErrNotReady:
		return ErrorNotReady
	case ErrAlreadyLoggedOn:
		return ErrorAlreadyLoggedOn
	case ErrInvalidPassword:
		return ErrorInvalidPassword
	case ErrNotLoggedOn:
		return ErrorNotLoggedOn
	default:
		return ErrorNotReady
	}
}
