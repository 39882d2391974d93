package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the statistics layer surfaces.
type ErrorKind string

const (
	KindCredentialMissing       ErrorKind = "credential_missing"
	KindCredentialInvalid       ErrorKind = "credential_invalid"
	KindNoConnectivity          ErrorKind = "no_connectivity"
	KindServerUnavailable       ErrorKind = "server_unavailable"
	KindMetadataUnavailable     ErrorKind = "metadata_unavailable"
	KindDataUnavailable         ErrorKind = "data_unavailable"
	KindUnsupportedFormat       ErrorKind = "unsupported_format"
	KindDestinationExists       ErrorKind = "destination_exists"
	KindUnexpectedResponseShape ErrorKind = "unexpected_response_shape"
)

// Category groups error kinds by what the user should do about them.
type Category string

const (
	CategoryFixCredential     Category = "fix-credential"
	CategoryRetryLater        Category = "retry-later"
	CategoryNoData            Category = "no-data"
	CategoryChangeDestination Category = "change-destination"
	CategoryProviderError     Category = "provider-error"
)

// Category returns the user-facing category of the kind.
func (k ErrorKind) Category() Category {
	switch k {
	case KindCredentialMissing, KindCredentialInvalid:
		return CategoryFixCredential
	case KindNoConnectivity, KindServerUnavailable:
		return CategoryRetryLater
	case KindMetadataUnavailable, KindDataUnavailable:
		return CategoryNoData
	case KindUnsupportedFormat, KindDestinationExists:
		return CategoryChangeDestination
	default:
		return CategoryProviderError
	}
}

// Hint returns a short instruction matching the category.
func (c Category) Hint() string {
	switch c {
	case CategoryFixCredential:
		return "check your BPS API token"
	case CategoryRetryLater:
		return "try again later"
	case CategoryNoData:
		return "no data is available for these parameters"
	case CategoryChangeDestination:
		return "pick a different output target"
	default:
		return "the provider returned an unexpected response"
	}
}

// maxExcerpt bounds the raw payload kept on UnexpectedResponseShape errors.
const maxExcerpt = 500

// Error is the typed error returned by the statistics layer.
type Error struct {
	Kind    ErrorKind
	Msg     string
	Excerpt string // Truncated raw payload for UnexpectedResponseShape.
	Path    string // Destination for DestinationExists.
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Excerpt != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Excerpt)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the Err* sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrCredentialMissing       = &Error{Kind: KindCredentialMissing}
	ErrCredentialInvalid       = &Error{Kind: KindCredentialInvalid}
	ErrNoConnectivity          = &Error{Kind: KindNoConnectivity}
	ErrServerUnavailable       = &Error{Kind: KindServerUnavailable}
	ErrMetadataUnavailable     = &Error{Kind: KindMetadataUnavailable}
	ErrDataUnavailable         = &Error{Kind: KindDataUnavailable}
	ErrUnsupportedFormat       = &Error{Kind: KindUnsupportedFormat}
	ErrDestinationExists       = &Error{Kind: KindDestinationExists}
	ErrUnexpectedResponseShape = &Error{Kind: KindUnexpectedResponseShape}
)

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// UnexpectedShape builds an UnexpectedResponseShape error keeping at most 500
// bytes of the raw payload.
func UnexpectedShape(msg string, payload []byte) *Error {
	excerpt := payload
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt]
	}
	return &Error{Kind: KindUnexpectedResponseShape, Msg: msg, Excerpt: string(excerpt)}
}

// DestinationExists builds a DestinationExists error for path.
func DestinationExists(path string) *Error {
	return &Error{Kind: KindDestinationExists, Msg: "destination already exists", Path: path}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
