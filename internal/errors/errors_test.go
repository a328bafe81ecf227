package errors

import "testing"

func TestErrorInterface(t *testing.T) {
	err := NewPageNotFound("42")
	if err.Error() != "PAGE_NOT_FOUND: page not found: 42" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "42" {
		t.Errorf("Details[identifier] = %v", err.Details["identifier"])
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewCacheMiss("https://example.org/w", "en"), ErrCacheMiss, true},
		{"different code", NewInvalidRequest("bad"), ErrCacheMiss, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q", err.Message)
	}
}
