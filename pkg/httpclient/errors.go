package httpclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// downstreamError mirrors the {"error":{"code","message"}} envelope written
// by pkg/httputil and by the catalog service.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// maps it to an AppError when the status has an equivalent.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	message := string(body)
	code := ""
	var de downstreamError
	if json.Unmarshal(body, &de) == nil && de.Error != nil {
		code, message = de.Error.Code, de.Error.Message
	}
	qualified := fmt.Sprintf("%s: %s", service, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(service+" resource", message)
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimited(qualified)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.Unavailable(qualified)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s server error (%d %s): %s", service, resp.StatusCode, code, message)
	default:
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, message)
	}
}
