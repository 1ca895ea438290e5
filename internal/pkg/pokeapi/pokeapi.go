// Package pokeapi is a read-only client for the public PokeAPI with a Redis
// cache in front of it. Responses are cached for an hour; the API data is
// effectively static.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pokevisor/pokevisor/internal/pkg/cache"
	"github.com/pokevisor/pokevisor/internal/pkg/env"
)

const (
	defaultBaseURL = "https://pokeapi.co/api/v2"
	cacheTTL       = time.Hour
)

// Pokemon is the subset of the PokeAPI pokemon resource the app serves.
type Pokemon struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	Types  []struct {
		Slot int `json:"slot"`
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
		IsHidden bool `json:"is_hidden"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        struct {
			OfficialArtwork struct {
				FrontDefault string `json:"front_default"`
			} `json:"official-artwork"`
		} `json:"other"`
	} `json:"sprites"`
}

// Species is the subset of the pokemon-species resource the app serves.
type Species struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	IsLegendary       bool   `json:"is_legendary"`
	IsMythical        bool   `json:"is_mythical"`
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
	EvolutionChain struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
}

// EvolutionChain is the recursive evolution resource.
type EvolutionChain struct {
	ID    int       `json:"id"`
	Chain ChainLink `json:"chain"`
}

// ChainLink is one node of the evolution chain.
type ChainLink struct {
	Species struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"species"`
	EvolvesTo []ChainLink `json:"evolves_to"`
}

// ListItem is one entry of the species index.
type ListItem struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Sprite string `json:"sprite"`
}

// Client fetches from PokeAPI through the shared cache.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClientFromEnv builds a client honoring POKEAPI_BASE_URL.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("POKEAPI_BASE_URL", defaultBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var nonNameChars = regexp.MustCompile(`[^a-z0-9-]`)
var dashRuns = regexp.MustCompile(`-+`)

// NormalizeName maps display names onto PokeAPI slugs:
// "Mr. Mime" -> "mr-mime", "Nidoran♀" -> "nidoran-f".
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "♀", "-f")
	n = strings.ReplaceAll(n, "♂", "-m")
	n = strings.ReplaceAll(n, ".", "")
	n = nonNameChars.ReplaceAllString(n, "-")
	n = dashRuns.ReplaceAllString(n, "-")
	return strings.Trim(n, "-")
}

// GetPokemon fetches a pokemon by name or numeric id.
func (c *Client) GetPokemon(ctx context.Context, nameOrID string) (*Pokemon, error) {
	slug := NormalizeName(nameOrID)
	if slug == "" {
		return nil, fmt.Errorf("invalid pokemon name: %q", nameOrID)
	}
	var p Pokemon
	if err := c.getCached(ctx, "/pokemon/"+slug, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetSpecies fetches the species resource for a pokemon id.
func (c *Client) GetSpecies(ctx context.Context, id int) (*Species, error) {
	var s Species
	if err := c.getCached(ctx, fmt.Sprintf("/pokemon-species/%d", id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetEvolutionChain fetches an evolution chain by id.
func (c *Client) GetEvolutionChain(ctx context.Context, id int) (*EvolutionChain, error) {
	var e EvolutionChain
	if err := c.getCached(ctx, fmt.Sprintf("/evolution-chain/%d", id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

type rawList struct {
	Count   int `json:"count"`
	Results []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}

// List returns the species index page [offset, offset+limit).
func (c *Client) List(ctx context.Context, limit, offset int) ([]ListItem, int, error) {
	var raw rawList
	if err := c.getCached(ctx, fmt.Sprintf("/pokemon?limit=%d&offset=%d", limit, offset), &raw); err != nil {
		return nil, 0, err
	}

	items := make([]ListItem, 0, len(raw.Results))
	for _, r := range raw.Results {
		id := idFromResourceURL(r.URL)
		if id == 0 {
			continue
		}
		items = append(items, ListItem{
			ID:     id,
			Name:   r.Name,
			Sprite: fmt.Sprintf("https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png", id),
		})
	}
	return items, raw.Count, nil
}

// idFromResourceURL pulls the trailing numeric id out of a PokeAPI URL.
func idFromResourceURL(u string) int {
	parts := strings.Split(strings.TrimRight(u, "/"), "/")
	if len(parts) == 0 {
		return 0
	}
	var id int
	fmt.Sscanf(parts[len(parts)-1], "%d", &id)
	return id
}

// IDFromChainURL exposes id extraction for evolution chain URLs.
func IDFromChainURL(u string) int {
	return idFromResourceURL(u)
}

func (c *Client) getCached(ctx context.Context, path string, out interface{}) error {
	key := "pokeapi:" + path

	if raw, err := cache.Get(key); err == nil {
		if jsonErr := json.Unmarshal([]byte(raw), out); jsonErr == nil {
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("pokeapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pokeapi returned %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode pokeapi response for %s: %w", path, err)
	}

	// Best effort; a cold cache only costs another upstream fetch.
	_ = cache.Set(key, body, cacheTTL)
	return nil
}
