package notion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jomei/notionapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "missing property",
			err:  &notionapi.Error{Status: 400, Code: "validation_error", Message: "Version is not a property that exists."},
			want: CodePropertyNotFound,
		},
		{
			name: "missing property alternate wording",
			err:  &notionapi.Error{Status: 400, Code: "validation_error", Message: "Could not find property with name or id: Status"},
			want: CodePropertyNotFound,
		},
		{
			name: "other validation error",
			err:  &notionapi.Error{Status: 400, Code: "validation_error", Message: "body.children.length should be ≤ 100"},
			want: CodeValidation,
		},
		{
			name: "rate limited",
			err:  &notionapi.Error{Status: 429, Code: "rate_limited", Message: "slow down"},
			want: CodeRateLimited,
		},
		{
			name: "not found",
			err:  &notionapi.Error{Status: 404, Code: "object_not_found", Message: "Could not find page"},
			want: CodeNotFound,
		},
		{
			name: "unauthorized",
			err:  &notionapi.Error{Status: 401, Code: "unauthorized", Message: "API token is invalid."},
			want: CodeUnauthorized,
		},
		{
			name: "server error",
			err:  &notionapi.Error{Status: 502, Code: "internal_server_error", Message: "bad gateway"},
			want: CodeOther,
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("request: %w", &notionapi.Error{Status: 404, Code: "object_not_found"}),
			want: CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)

			var e *Error
			if !errors.As(got, &e) {
				t.Fatalf("classify() = %T, want *Error", got)
			}
			if e.Code != tt.want {
				t.Errorf("Code = %v, want %v", e.Code, tt.want)
			}

			var apiErr *notionapi.Error
			if !errors.As(got, &apiErr) {
				t.Error("classified error should unwrap to *notionapi.Error")
			}
		})
	}
}

func TestClassify_NonAPIErrors(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}

	got := classify(context.Canceled)
	if got != context.Canceled {
		t.Errorf("classify(context.Canceled) = %v, want it unchanged", got)
	}
	if IsPropertyNotFound(got) {
		t.Error("context error must not be treated as missing property")
	}

	once := classify(&notionapi.Error{Status: 429, Code: "rate_limited"})
	if twice := classify(once); twice != once {
		t.Error("classify should return already classified errors unchanged")
	}
}

func TestIsPropertyNotFound(t *testing.T) {
	missing := classify(&notionapi.Error{Status: 400, Code: "validation_error", Message: "URL is not a property that exists."})
	if !IsPropertyNotFound(missing) {
		t.Error("expected missing property error to match")
	}
	if !IsPropertyNotFound(fmt.Errorf("updating: %w", missing)) {
		t.Error("expected wrapped missing property error to match")
	}
	if IsPropertyNotFound(nil) {
		t.Error("nil must not match")
	}
	if IsPropertyNotFound(errors.New("is not a property that exists")) {
		t.Error("plain errors must not match on message alone")
	}
}
