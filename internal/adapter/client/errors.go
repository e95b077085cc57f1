package client

import (
	"errors"
	"fmt"
	"net/http"

	"estimator-core/internal/domain/entity"

	"google.golang.org/genai"
)

// markTransient tags rate limits and server-side failures from the Gemini API
// with entity.ErrUpstreamTransient. Everything else is returned unchanged.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", entity.ErrUpstreamTransient, err)
	}
	return err
}
