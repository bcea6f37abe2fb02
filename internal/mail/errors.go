package mail

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ErrAuth marks provider failures that won't go away on retry: expired or
// revoked credentials, missing scopes. A run hitting one of these must stop.
var ErrAuth = errors.New("mail provider authentication failed")

// ErrRateLimited marks quota and throttling responses. These are transient
// and safe to retry with backoff.
var ErrRateLimited = errors.New("mail provider rate limited")

// ErrTransient marks server-side failures (5xx) worth retrying.
var ErrTransient = errors.New("transient mail provider error")

// IsAuthError reports whether the error is a fatal authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// classify maps raw Google API and OAuth errors onto the package's error
// taxonomy so callers can decide between retrying and aborting.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case apiErr.Code == 403:
			if isRateLimitReason(apiErr) {
				return fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}

	return err
}

func isRateLimitReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}
