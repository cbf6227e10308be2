package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "openai status error"
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("openai %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("openai %s: %s", e.Operation, e.Message)
}

// ResilientRecognizer retries transport-level recognition failures and trips
// the circuit breaker when the provider is unhealthy. Credential and parse
// failures are terminal and pass through on the first attempt.
type ResilientRecognizer struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientRecognizer(client *Client, executor *resilience.Executor) *ResilientRecognizer {
	return &ResilientRecognizer{client: client, executor: executor}
}

func (r *ResilientRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) ([]domain.RecognitionResult, error) {
	if r.executor == nil {
		return r.client.Recognize(ctx, image, mimeType)
	}

	var results []domain.RecognitionResult
	err := r.executor.Execute(ctx, "openai.recognize", func(callCtx context.Context) error {
		var callErr error
		results, callErr = r.client.Recognize(callCtx, image, mimeType)
		return callErr
	}, classifyRecognitionError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(err)
	}
	return results, nil
}

func classifyRecognitionError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}

	// Credential and response-shape failures never resolve themselves.
	if domain.IsKind(err, domain.ErrCredentialMissing) ||
		domain.IsKind(err, domain.ErrCredentialInvalid) ||
		domain.IsKind(err, domain.ErrMalformedResponse) {
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Verdict{Retryable: true, RecordFailure: true}
		}
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}
	if domain.IsKind(err, domain.ErrTransport) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}

	return resilience.Verdict{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "openai recognize", err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
