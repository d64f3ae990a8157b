package domain

import (
	"errors"
	"fmt"
)

var (
	// Snapshot store errors
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrAccessDenied        = errors.New("access denied: no authenticated owner")
	ErrInvalidSnapshotName = errors.New("invalid snapshot name")

	// Upload errors
	ErrUnreadableCSV = errors.New("csv could not be read")

	// Auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// ParseErrorKind classifies a data problem in an uploaded row.
type ParseErrorKind string

const (
	ParseErrMissingField  ParseErrorKind = "missing_field"
	ParseErrInvalidNumber ParseErrorKind = "invalid_number"
)

// ParseError reports a row the user has to fix in the source file.
// RowIndex is 1-based and counts data rows only.
type ParseError struct {
	Kind     ParseErrorKind
	RowIndex int
	Field    string
	RawValue string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseErrInvalidNumber:
		return fmt.Sprintf("Invalid %s value in row %d: %q", e.Field, e.RowIndex, e.RawValue)
	default:
		return fmt.Sprintf("Missing required field %s in row %d", e.Field, e.RowIndex)
	}
}

// GatewayErrorKind classifies a forecast service failure.
type GatewayErrorKind string

const (
	GatewayErrTimeout     GatewayErrorKind = "timeout"
	GatewayErrBadStatus   GatewayErrorKind = "bad_status"
	GatewayErrBadResponse GatewayErrorKind = "bad_response"
	GatewayErrTransport   GatewayErrorKind = "transport"
)

// GatewayError is a forecast failure. It never aborts an upload.
type GatewayError struct {
	Kind       GatewayErrorKind
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	msg := "forecast gateway " + string(e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
