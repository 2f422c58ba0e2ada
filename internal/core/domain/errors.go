package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrJobAlreadyInProgress indicates a processing job is already queued or
	// running for the document
	ErrJobAlreadyInProgress = errors.New("processing job already in progress")

	// ErrJobNotCancellable indicates the job has left the queued state
	ErrJobNotCancellable = errors.New("job can no longer be cancelled")

	// ErrJobTerminal indicates an attempted transition out of a terminal state
	ErrJobTerminal = errors.New("job is in a terminal state")

	// ErrModelUnavailable indicates no classifier model is loaded
	ErrModelUnavailable = errors.New("classifier model unavailable")

	// ErrUnsupportedFormat indicates no extractor handles the document format
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)

// ErrorKind classifies pipeline failures for job status reporting.
type ErrorKind string

const (
	// ErrorKindDocumentParse means text extraction failed. Permanent for the
	// submitted file; the job is not retried.
	ErrorKindDocumentParse ErrorKind = "document_parse"

	// ErrorKindSegmentation means sentence segmentation failed.
	ErrorKindSegmentation ErrorKind = "segmentation"

	// ErrorKindModelUnavailable means no classifier was loaded. Blocks all
	// jobs until an operator activates a model.
	ErrorKindModelUnavailable ErrorKind = "model_unavailable"

	// ErrorKindInference means the classifier returned an error.
	ErrorKindInference ErrorKind = "inference"

	// ErrorKindPersistence means the report transaction failed and was rolled
	// back. The whole job is safe to resubmit.
	ErrorKindPersistence ErrorKind = "persistence"

	// ErrorKindInternal covers failures not attributable to a pipeline stage.
	ErrorKindInternal ErrorKind = "internal"
)

// PipelineError wraps a stage-local failure with the kind surfaced to callers
// polling job status.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a PipelineError wrapping err.
func NewPipelineError(kind ErrorKind, stage string, err error) *PipelineError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &PipelineError{Kind: kind, Stage: stage, Message: msg, Err: err}
}

// NewParseError marks a document as unreadable for this pipeline.
func NewParseError(stage string, err error) *PipelineError {
	return NewPipelineError(ErrorKindDocumentParse, stage, err)
}

// KindOf extracts the ErrorKind from err, classifying well-known sentinels.
// Unrecognized errors map to ErrorKindInternal.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return ErrorKindModelUnavailable
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrorKindDocumentParse
	default:
		return ErrorKindInternal
	}
}
