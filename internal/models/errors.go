package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"github.com/easeaico/lens-assistant/internal/types"
)

// classifyError separates backend outages from everything else.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %w", types.ErrProviderUnavailable, apiErr.StatusCode, err)
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return fmt.Errorf("%w: status %d: %w", types.ErrProviderUnavailable, genaiErr.Code, err)
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
	}
	return err
}
