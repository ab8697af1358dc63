package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestServiceError_PassesMessageThrough(t *testing.T) {
	backendErr := errors.New("Image.select: Pattern 'VV' did not match any bands.")

	err := NewServiceError("compute area", backendErr)

	if err.Error() != backendErr.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), backendErr.Error())
	}
	if !errors.Is(err, backendErr) {
		t.Error("ServiceError should unwrap to the backend error")
	}
}

func TestNewServiceError_KeepsClassifiedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", NewValidationError("country_name", "Country name is required")},
		{"not found", &NotFoundError{Kind: "country", Name: "Atlantis"}},
		{"no data", &NoDataError{Message: "no data"}},
		{"wrapped not found", fmt.Errorf("resolve: %w", &NotFoundError{Kind: "country", Name: "Atlantis"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewServiceError("op", tt.err)
			var serviceErr *ServiceError
			if errors.As(got, &serviceErr) {
				t.Errorf("classified error %v was re-wrapped as ServiceError", tt.err)
			}
		})
	}
}

func TestNewServiceError_Nil(t *testing.T) {
	if err := NewServiceError("op", nil); err != nil {
		t.Errorf("NewServiceError(nil) = %v, want nil", err)
	}
}

func TestNotFoundError_Message(t *testing.T) {
	err := &NotFoundError{Kind: "country", Name: "Atlantis"}
	if got, want := err.Error(), `country "Atlantis" not found`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
