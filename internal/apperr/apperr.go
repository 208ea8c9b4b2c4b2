// Package apperr maps failures to the four user-facing error pages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/aninfo/internal/fetch"
)

// RedirectDelay is how long an error page stays before navigating back.
const RedirectDelay = 4 * time.Second

// RedirectNotice is shown under every error page.
const RedirectNotice = "You will automatically be redirected to the previous page or the home page."

type Kind string

const (
	Runtime  Kind = "js"
	Network  Kind = "gl"
	Decode   Kind = "sd"
	NotFound Kind = "nf"
)

var titles = map[Kind]string{
	Network:  "Network error",
	Runtime:  "Runtime error",
	Decode:   "Too many request",
	NotFound: "404 Not Found",
}

var defaults = map[Kind]string{
	Runtime:  "Unexpected application error occurred. Please make sure you are running the latest aninfo release.",
	Network:  "Error in getting data from the server. This may occur because your network connection is unstable, or has been interrupted.",
	Decode:   "Error in formatting data. Usually this occurs because you have made too many requests in a short span of time. You will be redirected to your previous page soon.",
	NotFound: "The feature you're looking for does not exist.",
}

func (k Kind) Title() string {
	return titles[k]
}

func (k Kind) DefaultMessage() string {
	return defaults[k]
}

// Error is a user-facing failure: a kind plus the message shown under its title.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(k Kind, msg string) *Error {
	if msg == "" {
		msg = k.DefaultMessage()
	}
	return &Error{Kind: k, Message: msg}
}

func Default(k Kind) *Error {
	return New(k, "")
}

func (e *Error) Error() string {
	return e.Kind.Title() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Title() string { return e.Kind.Title() }

// String encodes the error as its two-letter code followed by the message,
// the form used in error-page routes.
func (e *Error) String() string {
	return string(e.Kind) + e.Message
}

// Parse decodes the String form. A bare code yields the kind's default
// message; not-found always carries its default message.
func Parse(raw string) (*Error, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("apperr: unknown error code %q", raw)
	}
	k := Kind(raw[:2])
	if _, ok := titles[k]; !ok {
		return nil, fmt.Errorf("apperr: unknown error code %q", raw[:2])
	}
	if k == NotFound {
		return Default(NotFound), nil
	}
	return New(k, raw[2:]), nil
}

// FromError classifies err. Fetch failures map by the kind of their last
// attempt; anything unrecognised is a runtime error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	k := Runtime
	switch fetch.KindOf(err) {
	case fetch.KindNotFound:
		k = NotFound
	case fetch.KindDecode:
		k = Decode
	case fetch.KindStatus:
		k = Network
		if fetch.StatusOf(err) == http.StatusTooManyRequests {
			k = Decode
		}
	case fetch.KindTransport:
		k = Network
	default:
		if errors.Is(err, fetch.ErrServiceUnavailable) {
			k = Network
		}
	}
	out := Default(k)
	out.cause = err
	return out
}
