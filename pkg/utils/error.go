package utils

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrBadRequest      = fmt.Errorf("Bad request")
	ErrClosed          = fmt.Errorf("Channel closed")
	ErrMissingChannel  = fmt.Errorf("A channel is required")
	ErrMissingResolver = fmt.Errorf("A provider resolver is required")
	ErrMissingSender   = fmt.Errorf("A send function is required")
	ErrNoProviders     = fmt.Errorf("No providers available")
	ErrNotFound        = fmt.Errorf("Not found")
	ErrParse           = fmt.Errorf("Parse error")
	ErrUnknownMessage  = fmt.Errorf("Unknown message type")
)

// Convert errors to errors with grpc status codes
func GrpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrNoProviders):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownMessage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrClosed):
		return status.Error(codes.Canceled, err.Error())
	}
	return err
}
