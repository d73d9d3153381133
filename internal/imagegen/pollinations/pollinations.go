package pollinations

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"promptcanvas/internal/imagegen"
)

const (
	imageWidth  = 512
	imageHeight = 512
	maxSeed     = 9_999_999
)

type Client struct {
	BaseURL string
	http    *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a client against the pollinations image endpoint. The random
// source feeds per-call seeds; pass a fixed-seed source in tests.
func New(baseURL string, rng *rand.Rand) *Client {
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai"
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		rng:     rng,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (*imagegen.Result, error) {
	c.mu.Lock()
	seed := c.rng.Intn(maxSeed + 1)
	c.mu.Unlock()

	u := fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&seed=%d&nologo=true",
		c.BaseURL, url.PathEscape(prompt), imageWidth, imageHeight, seed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagegen.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", imagegen.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", imagegen.ErrUpstream, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", imagegen.ErrUpstream)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return &imagegen.Result{Image: body, ContentType: ct, Seed: seed}, nil
}
