package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindConfig, "load", "failed to load config",
				errors.New("file not found")),
			contains: []string{"[config:load]", "failed to load config", "file not found"},
		},
		{
			name:     "error without cause",
			err:      New(KindOCR, "recognize", "empty response body"),
			contains: []string{"[ocr:recognize]", "empty response body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("error message %q missing %q", msg, want)
				}
			}
		})
	}
}

func TestWrap_NilCause(t *testing.T) {
	if got := Wrap(KindCompletion, "answer", "should be nil", nil); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}
}

func TestWrap_PreservesTypedError(t *testing.T) {
	inner := New(KindCapture, "still", "no frame available")
	outer := Wrap(KindSession, "cycle", "capture step failed", inner)
	if outer.Kind != KindCapture {
		t.Errorf("Wrap rewrapped typed error, kind = %s, want %s", outer.Kind, KindCapture)
	}
}

func TestIsKind(t *testing.T) {
	err := Wrap(KindStorage, "save", "settings write failed", errors.New("disk full"))
	if !IsKind(err, KindStorage) {
		t.Errorf("IsKind(storage) = false, want true")
	}
	if IsKind(err, KindOCR) {
		t.Errorf("IsKind(ocr) = true, want false")
	}
	if IsKind(nil, KindStorage) {
		t.Errorf("IsKind(nil) = true, want false")
	}
}
