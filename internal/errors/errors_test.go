package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("P101")

	if err.Code != "P101" {
		t.Errorf("Code = %q, want %q", err.Code, "P101")
	}
	if err.Category != CategoryConfig {
		t.Errorf("Category = %q, want %q", err.Category, CategoryConfig)
	}
	if err.Message != "Configuration file not found" {
		t.Errorf("unexpected Message %q", err.Message)
	}

	unknown := New("P999")
	if unknown.Message != "Unknown error" {
		t.Errorf("unknown code Message = %q", unknown.Message)
	}
}

func TestPulseError_Error(t *testing.T) {
	err := New("P102").Wrap(stderrors.New("unexpected EOF"))
	want := "P102: Invalid configuration file: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := Newf(CategoryCLI, "bad flag %s", "--x")
	if plain.Error() != "bad flag --x" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestPulseError_Unwrap(t *testing.T) {
	cause := stderrors.New("cause")
	err := New("P301").Wrap(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "P102") != nil {
		t.Error("FromError(nil) should be nil")
	}

	pe := New("P104")
	if FromError(pe, "P102") != pe {
		t.Error("FromError should pass PulseErrors through")
	}

	wrapped := FromError(stderrors.New("x"), "P102")
	if wrapped.Code != "P102" || wrapped.Wrapped == nil {
		t.Errorf("unexpected wrap: %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("P101").
		WithDetail("No pulse.json found in /tmp/app").
		WithSuggestion("Pass --config")
	out := err.Format()

	for _, want := range []string{"ERROR P101: Configuration file not found", "No pulse.json found", "Hint: Pass --config"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in %q", want, out)
		}
	}
	if err.FormatCompact() != "P101: Configuration file not found" {
		t.Errorf("FormatCompact() = %q", err.FormatCompact())
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestGetAllCodesSorted(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("expected registered codes")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Errorf("codes not sorted: %v", codes)
		}
	}
	if _, ok := GetTemplate(codes[0]); !ok {
		t.Errorf("expected template for %s", codes[0])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	if len(lines) < 2 {
		t.Errorf("expected wrapping, got %v", lines)
	}
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q longer than width", l)
		}
	}
}
