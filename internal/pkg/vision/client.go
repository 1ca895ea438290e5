// Package vision wraps the OpenAI-compatible chat completions API behind the
// two calls the app needs: identifying a Pokémon on a photo and narrating a
// description. Both are black boxes with hard timeouts; callers never commit
// quota for a call that did not return a result.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pokevisor/pokevisor/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"

	// RequestTimeout bounds every identification/description call.
	RequestTimeout = 10 * time.Second
)

// NameUnknown is returned when the model sees no recognizable Pokémon.
const NameUnknown = "UNKNOWN"

// ErrTimeout reports that the provider did not answer within RequestTimeout.
var ErrTimeout = errors.New("vision request timed out")

const identifyPrompt = `You are a Pokémon expert. Look at this image and identify which Pokémon it shows.
It could be a toy, card, drawing, or real object.
Reply with ONLY the exact English name (e.g., Pikachu, Bulbasaur, Charizard).
If uncertain or no Pokémon visible, reply: UNKNOWN`

// DescriptionData carries the species attributes the narrator works from.
type DescriptionData struct {
	PokemonName string   `json:"pokemon_name" validate:"required"`
	Types       []string `json:"types" validate:"required,min=1"`
	Abilities   []string `json:"abilities" validate:"required,min=1"`
	Stats       []Stat   `json:"stats"`
	Height      float64  `json:"height"`
	Weight      float64  `json:"weight"`
	IsLegendary bool     `json:"is_legendary"`
	IsMythical  bool     `json:"is_mythical"`
}

// Stat is one base stat entry.
type Stat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	APIKey     string
	APIBaseURL string
	Model      string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from OPENAI_* env vars.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("OPENAI_API_BASE_URL", defaultAPIBaseURL)),
		Model:      strings.TrimSpace(env.GetEnv("OPENAI_MODEL", defaultModel)),
		HTTPClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

var (
	globalClient   *Client
	globalClientMu sync.RWMutex
)

// SetGlobalClient installs the process-wide vision client used by handlers.
func SetGlobalClient(c *Client) {
	globalClientMu.Lock()
	defer globalClientMu.Unlock()
	globalClient = c
}

// GetGlobalClient returns the process-wide vision client.
func GetGlobalClient() *Client {
	globalClientMu.RLock()
	defer globalClientMu.RUnlock()
	return globalClient
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Identify sends the photo to the vision model and returns the Pokémon name,
// or NameUnknown when nothing recognizable is on the image.
func (c *Client) Identify(ctx context.Context, imageBase64 string) (string, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return "", errors.New("image is required")
	}

	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: identifyPrompt},
				{Type: "image_url", ImageURL: &chatImageURL{
					URL: "data:image/jpeg;base64," + imageBase64,
				}},
			},
		}},
		MaxTokens: 50,
	}

	answer, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	name := cleanName(answer)
	if name == "" {
		return NameUnknown, nil
	}
	return name, nil
}

// Describe asks the model for a short in-universe description of a species.
func (c *Client) Describe(ctx context.Context, data DescriptionData) (string, error) {
	if strings.TrimSpace(data.PokemonName) == "" {
		return "", errors.New("pokemon_name is required")
	}

	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: describePrompt(data)},
			},
		}},
		MaxTokens: 300,
	}
	return c.complete(ctx, req)
}

func describePrompt(d DescriptionData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the narrator of a Pokémon anime Pokédex. Describe %s in two short sentences, enthusiastic but factual.\n", d.PokemonName)
	fmt.Fprintf(&b, "Types: %s. Abilities: %s. Height: %.1fm. Weight: %.1fkg.\n",
		strings.Join(d.Types, ", "), strings.Join(d.Abilities, ", "), d.Height, d.Weight)
	for _, s := range d.Stats {
		fmt.Fprintf(&b, "%s: %d. ", s.Name, s.Value)
	}
	if d.IsLegendary {
		b.WriteString("This is a legendary Pokémon. ")
	}
	if d.IsMythical {
		b.WriteString("This is a mythical Pokémon. ")
	}
	return b.String()
}

func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vision request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("vision response had no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// cleanName strips quoting and trailing punctuation the model sometimes adds.
func cleanName(answer string) string {
	name := strings.TrimSpace(answer)
	name = strings.Trim(name, `"'`)
	name = strings.TrimSuffix(name, ".")
	return strings.TrimSpace(name)
}
