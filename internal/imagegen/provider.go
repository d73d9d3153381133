package imagegen

import (
	"context"
	"errors"
)

var ErrUpstream = errors.New("upstream image provider failed")

// Result is one generated image. ContentType is whatever the upstream
// responded with and is preserved when building data URIs.
type Result struct {
	Image       []byte
	ContentType string
	Seed        int
}

// Provider turns a prompt into an image. Implementations never retry;
// retry policy belongs to the caller. The caller is responsible for prompt
// length validation before calling Generate.
type Provider interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}
