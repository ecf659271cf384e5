package exceptions_test

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/km-arc/go-dispatch/framework/exceptions"
)

func TestNew_DefaultsMessageToStatusText(t *testing.T) {
	e := exceptions.New(http.StatusTeapot, "")
	if e.Message != "I'm a teapot" {
		t.Errorf("got %q", e.Message)
	}
}

func TestForbidden_DefaultMessage(t *testing.T) {
	e := exceptions.Forbidden("")
	if e.StatusCode() != http.StatusForbidden || e.PublicMessage() != exceptions.DefaultForbiddenMessage {
		t.Errorf("got %d %q", e.StatusCode(), e.PublicMessage())
	}
}

func TestAsStatusCoder_ThroughWrapping(t *testing.T) {
	err := errors.Wrap(exceptions.NotFound("no cat"), "loading cat")

	sc, ok := exceptions.AsStatusCoder(err)
	if !ok {
		t.Fatal("expected StatusCoder in chain")
	}
	if sc.StatusCode() != http.StatusNotFound || sc.PublicMessage() != "no cat" {
		t.Errorf("got %d %q", sc.StatusCode(), sc.PublicMessage())
	}
	if exceptions.Status(err) != http.StatusNotFound {
		t.Error("Status() should read through wrapping")
	}
	if exceptions.Status(errors.New("plain")) != http.StatusInternalServerError {
		t.Error("plain errors map to 500")
	}
}

func TestHTTPException_CauseAndDetails(t *testing.T) {
	cause := errors.New("db down")
	e := exceptions.Internal("").WithCause(cause).WithDetail("retry", true)

	if !errors.Is(e, cause) {
		t.Error("Unwrap should expose cause")
	}
	if e.Details["retry"] != true {
		t.Errorf("details: %v", e.Details)
	}
}

func TestValidationError(t *testing.T) {
	e := exceptions.NewValidationError().
		Add("name", "The name field is required.").
		Add("name", "second").
		Add("age", "The age must be a number.")

	if !e.Has() || e.First("name") != "The name field is required." {
		t.Errorf("unexpected %+v", e.Fields)
	}
	if e.Error() != "validation failed on [age name]" {
		t.Errorf("Error(): %q", e.Error())
	}
	if exceptions.Status(e) != http.StatusUnprocessableEntity {
		t.Error("validation errors map to 422")
	}
	if _, ok := exceptions.AsValidation(errors.Wrap(e, "pipe")); !ok {
		t.Error("AsValidation should read through wrapping")
	}
}

func TestHandlerFault_UnwrapsPanickedError(t *testing.T) {
	boom := errors.New("boom")
	f := &exceptions.HandlerFault{Stage: "handler", Value: boom}
	if !errors.Is(f, boom) {
		t.Error("expected panicked error in chain")
	}
	if (&exceptions.HandlerFault{Value: "text"}).Unwrap() != nil {
		t.Error("non-error panic values unwrap to nil")
	}
}
