package discordprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/expected-so/canonicallog"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// Deliver posts the payload to the configured webhook, retrying transient
// failures with exponential backoff. It always returns an outcome, callers
// decide what a failed delivery means for them.
func (p *Provider) Deliver(ctx context.Context, payload types.WebhookPayload) types.DeliveryOutcome {
	logContext := canonicallog.NewLogLine(ctx)
	startedAt := time.Now()

	outcome := p.deliver(logContext, payload)

	canonicallog.LogAttr(logContext, slog.String("outcome", string(outcome.Status)))
	canonicallog.LogAttr(logContext, slog.Int("attempts", outcome.Attempts))
	if outcome.StatusCode != 0 {
		canonicallog.LogAttr(logContext, slog.Int("status", outcome.StatusCode))
	}
	if outcome.Err != nil {
		canonicallog.LogAttr(logContext, slog.Any("error", outcome.Err))
	}
	canonicallog.LogDuration(logContext, time.Now().Sub(startedAt))
	canonicallog.PrintLine(logContext, "webhook-delivery")

	return outcome
}

func (p *Provider) deliver(ctx context.Context, payload types.WebhookPayload) types.DeliveryOutcome {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.DeliveryOutcome{
			Status: types.DeliveryStatusFailedPermanent,
			Err:    fmt.Errorf("%w: %w", types.ErrDeliveryPermanent, err),
		}
	}

	var (
		lastErr    error
		lastStatus int
		retryFloor time.Duration
	)
	delay := p.initialDelay
	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return types.DeliveryOutcome{
					Status:     types.DeliveryStatusFailedExhausted,
					Attempts:   attempt - 1,
					StatusCode: lastStatus,
					Err:        fmt.Errorf("%w: %w", types.ErrDeliveryExhausted, ctx.Err()),
				}
			case <-time.After(nextWait(delay, retryFloor)):
			}
			delay *= 2
			if delay > p.maxDelay {
				delay = p.maxDelay
			}
		}

		statusCode, retryAfter, err := p.post(ctx, body)
		switch {
		case err != nil:
			lastErr, lastStatus = err, 0
			p.log.Warn("webhook request failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		case statusCode/100 == 2:
			return types.DeliveryOutcome{
				Status:     types.DeliveryStatusDelivered,
				Attempts:   attempt,
				StatusCode: statusCode,
			}
		case statusCode == http.StatusTooManyRequests || statusCode >= 500:
			lastErr = fmt.Errorf("webhook returned status %d", statusCode)
			lastStatus = statusCode
			retryFloor = retryAfter
			if retryAfter > delay {
				delay = retryAfter
			}
			p.log.Warn("webhook rejected delivery",
				slog.Int("attempt", attempt),
				slog.Int("status", statusCode))
		default:
			return types.DeliveryOutcome{
				Status:     types.DeliveryStatusFailedPermanent,
				Attempts:   attempt,
				StatusCode: statusCode,
				Err:        fmt.Errorf("%w: status %d", types.ErrDeliveryPermanent, statusCode),
			}
		}
	}

	return types.DeliveryOutcome{
		Status:     types.DeliveryStatusFailedExhausted,
		Attempts:   p.config.RetryAttempts,
		StatusCode: lastStatus,
		Err:        fmt.Errorf("%w after %d attempts: %w", types.ErrDeliveryExhausted, p.config.RetryAttempts, lastErr),
	}
}

func (p *Provider) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	return res.StatusCode, retryAfterHint(res), nil
}

// retryAfterHint reads the Retry-After header Discord sends alongside 429
// responses. Only the delta-seconds form is honored.
func retryAfterHint(res *http.Response) time.Duration {
	seconds, err := strconv.Atoi(res.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// nextWait jitters the backoff delay, clamped so a Retry-After hint from the
// previous response is never undercut.
func nextWait(delay, floor time.Duration) time.Duration {
	wait := withJitter(delay)
	if wait < floor {
		wait = floor
	}
	return wait
}

// withJitter spreads a delay by ±25% so retries do not synchronize across
// delivery workers.
func withJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return delay
	}
	jitter := delay / 4
	return delay - jitter + rand.N(2*jitter+1)
}
