package notion

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jomei/notionapi"
)

// ErrorCode is the category of a failed Notion request.
type ErrorCode int

const (
	CodeOther ErrorCode = iota
	// CodePropertyNotFound means the page schema has no property with the
	// name used in the request.
	CodePropertyNotFound
	CodeValidation
	CodeRateLimited
	CodeNotFound
	CodeUnauthorized
)

func (c ErrorCode) String() string {
	switch c {
	case CodePropertyNotFound:
		return "property_not_found"
	case CodeValidation:
		return "validation_error"
	case CodeRateLimited:
		return "rate_limited"
	case CodeNotFound:
		return "not_found"
	case CodeUnauthorized:
		return "unauthorized"
	default:
		return "other"
	}
}

// ErrMalformedResponse is returned when a listing response is missing the
// pagination data needed to continue.
var ErrMalformedResponse = errors.New("malformed response from Notion")

// Error is a Notion API failure with its category resolved.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notion %s (status %d): %s", e.Code, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// missingPropertyPhrases are the messages Notion uses in validation errors
// when a request names a property the page does not have.
var missingPropertyPhrases = []string{
	"is not a property that exists",
	"could not find property",
}

// classify maps an error returned by notionapi to an *Error. Errors that did
// not come from the API (transport, context) are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	e := &Error{
		Code:    CodeOther,
		Status:  apiErr.Status,
		Message: apiErr.Message,
		Err:     err,
	}

	switch {
	case apiErr.Status == http.StatusTooManyRequests || apiErr.Code == "rate_limited":
		e.Code = CodeRateLimited
	case apiErr.Code == "validation_error" && isMissingProperty(apiErr.Message):
		e.Code = CodePropertyNotFound
	case apiErr.Code == "validation_error":
		e.Code = CodeValidation
	case apiErr.Status == http.StatusNotFound || apiErr.Code == "object_not_found":
		e.Code = CodeNotFound
	case apiErr.Status == http.StatusUnauthorized || apiErr.Code == "unauthorized":
		e.Code = CodeUnauthorized
	}

	return e
}

func isMissingProperty(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range missingPropertyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// CodeOf returns the category of err, or CodeOther if err is not a Notion error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeOther
}

// IsPropertyNotFound reports whether err means the page is missing a property.
func IsPropertyNotFound(err error) bool {
	return err != nil && CodeOf(err) == CodePropertyNotFound
}

// IsRateLimited reports whether err is a 429 from Notion.
func IsRateLimited(err error) bool {
	return err != nil && CodeOf(err) == CodeRateLimited
}
