package client

import (
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/config"
)

// newExecutor builds the failsafe executor wrapping every request. Without retries
// configured the executor runs the request once.
func newExecutor(opts RetryOptions) failsafe.Executor[*Response] {
	if opts.MaxRetries <= 0 {
		return failsafe.With[*Response]()
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	policy := retrypolicy.NewBuilder[*Response]().
		HandleIf(func(_ *Response, err error) bool {
			return apperrors.IsRetryable(err)
		}).
		WithMaxRetries(opts.MaxRetries).
		WithBackoff(delay, delay*8).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*Response]) {
			logger := config.GetLogger()
			logger.Debug().Err(e.LastError()).Int("attempt", e.Attempts()).Msg("Retrying request")
		}).
		Build()
	return failsafe.With[*Response](policy)
}
