package mail

import (
	"errors"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestParseFromHeader(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		wantEmail string
		wantName  string
	}{
		{"name and address", "Twitter <notify@twitter.com>", "notify@twitter.com", "Twitter"},
		{"quoted name", `"Acme Deals" <promo@acme.com>`, "promo@acme.com", "Acme Deals"},
		{"bare address", "noreply@example.com", "noreply@example.com", ""},
		{"uppercase address", "NoReply@Example.COM", "noreply@example.com", ""},
		{"angle brackets only", "<updates@news.io>", "updates@news.io", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, name := ParseFromHeader(tt.from)
			if email != tt.wantEmail {
				t.Errorf("email: expected %q, got %q", tt.wantEmail, email)
			}
			if name != tt.wantName {
				t.Errorf("name: expected %q, got %q", tt.wantName, name)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if classify(nil) != nil {
			t.Error("expected nil for nil error")
		}
	})

	t.Run("401 is auth", func(t *testing.T) {
		err := classify(&googleapi.Error{Code: 401})
		if !IsAuthError(err) {
			t.Errorf("expected auth error, got %v", err)
		}
	})

	t.Run("403 with rate-limit reason is transient", func(t *testing.T) {
		err := classify(&googleapi.Error{
			Code:   403,
			Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
		})
		if !IsTransient(err) {
			t.Errorf("expected transient error, got %v", err)
		}
		if IsAuthError(err) {
			t.Error("rate-limited 403 must not be treated as auth failure")
		}
	})

	t.Run("403 without rate-limit reason is auth", func(t *testing.T) {
		err := classify(&googleapi.Error{
			Code:   403,
			Errors: []googleapi.ErrorItem{{Reason: "insufficientPermissions"}},
		})
		if !IsAuthError(err) {
			t.Errorf("expected auth error, got %v", err)
		}
	})

	t.Run("429 is transient", func(t *testing.T) {
		err := classify(&googleapi.Error{Code: 429})
		if !IsTransient(err) {
			t.Errorf("expected transient error, got %v", err)
		}
	})

	t.Run("503 is transient", func(t *testing.T) {
		err := classify(&googleapi.Error{Code: 503})
		if !IsTransient(err) {
			t.Errorf("expected transient error, got %v", err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		original := errors.New("something else")
		err := classify(original)
		if !errors.Is(err, original) {
			t.Errorf("expected original error, got %v", err)
		}
		if IsTransient(err) || IsAuthError(err) {
			t.Error("unclassified error must be neither transient nor auth")
		}
	})

	t.Run("404 passes through", func(t *testing.T) {
		err := classify(&googleapi.Error{Code: 404})
		if IsTransient(err) || IsAuthError(err) {
			t.Errorf("404 must be neither transient nor auth, got %v", err)
		}
	})
}
