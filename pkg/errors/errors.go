package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransport represents DNS/connection/timeout failures
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeBlocked represents a soft block or challenge that survived all escalation tiers
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeExtraction represents a page that fetched OK but is missing expected fields
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypePersistence represents sink write failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeValidation represents record validation rejections
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScraperError represents a scraper-specific error
type ScraperError struct {
	Type    ErrorType
	Source  string
	URL     string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScraperError) Error() string {
	switch {
	case e.Err != nil && e.URL != "":
		return fmt.Sprintf("[%s] %s: %s (%s) - %v", e.Type, e.Source, e.Message, e.URL, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	case e.URL != "":
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Type, e.Source, e.Message, e.URL)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *ScraperError) Unwrap() error {
	return e.Err
}

// New creates a new ScraperError
func New(errType ErrorType, source, message string, err error) *ScraperError {
	return &ScraperError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTransport creates a new transport error
func NewTransport(source, url string, err error) *ScraperError {
	e := New(ErrorTypeTransport, source, "request failed", err)
	e.URL = url
	return e
}

// NewBlocked creates a new blocked error after every tier has been exhausted
func NewBlocked(source, url string, attempts int) *ScraperError {
	e := New(ErrorTypeBlocked, source, fmt.Sprintf("gave up after %d attempts", attempts), nil)
	e.URL = url
	return e
}

// NewExtraction creates a new extraction error
func NewExtraction(source, url, message string) *ScraperError {
	e := New(ErrorTypeExtraction, source, message, nil)
	e.URL = url
	return e
}

// NewPersistence creates a new persistence error
func NewPersistence(sink, message string, err error) *ScraperError {
	return New(ErrorTypePersistence, sink, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScraperError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a ScraperError of the given type
func IsType(err error, errType ErrorType) bool {
	var se *ScraperError
	if errors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// IsBlocked reports whether err is a give-up after all escalation tiers
func IsBlocked(err error) bool {
	return IsType(err, ErrorTypeBlocked)
}

// IsPersistence reports whether err is a sink failure
func IsPersistence(err error) bool {
	return IsType(err, ErrorTypePersistence)
}
