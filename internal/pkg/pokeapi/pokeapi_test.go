package pokeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Pikachu", want: "pikachu"},
		{in: "  Bulbasaur  ", want: "bulbasaur"},
		{in: "Mr. Mime", want: "mr-mime"},
		{in: "Farfetch'd", want: "farfetch-d"},
		{in: "Nidoran♀", want: "nidoran-f"},
		{in: "Nidoran♂", want: "nidoran-m"},
		{in: "Ho-Oh", want: "ho-oh"},
		{in: "Type: Null", want: "type-null"},
		{in: "porygon-z", want: "porygon-z"},
		{in: "", want: ""},
		{in: "...", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIDFromResourceURL(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "https://pokeapi.co/api/v2/pokemon/25/", want: 25},
		{in: "https://pokeapi.co/api/v2/evolution-chain/10", want: 10},
		{in: "https://pokeapi.co/api/v2/pokemon/abc/", want: 0},
		{in: "", want: 0},
	}

	for _, tt := range tests {
		if got := idFromResourceURL(tt.in); got != tt.want {
			t.Fatalf("idFromResourceURL(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func newTestClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestGetPokemonNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPokemon(context.Background(), "missingno")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPokemonDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pokemon/pikachu" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":25,"name":"pikachu","height":4,"weight":60,"types":[{"slot":1,"type":{"name":"electric"}}]}`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).GetPokemon(context.Background(), "Pikachu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 25 || p.Name != "pikachu" {
		t.Fatalf("unexpected pokemon %+v", p)
	}
	if len(p.Types) != 1 || p.Types[0].Type.Name != "electric" {
		t.Fatalf("unexpected types %+v", p.Types)
	}
}

func TestGetPokemonInvalidName(t *testing.T) {
	if _, err := newTestClient("http://127.0.0.1:0").GetPokemon(context.Background(), "..."); err == nil {
		t.Fatalf("expected error for an empty slug")
	}
}

func TestListExtractsIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1302,"results":[` +
			`{"name":"bulbasaur","url":"https://pokeapi.co/api/v2/pokemon/1/"},` +
			`{"name":"ivysaur","url":"https://pokeapi.co/api/v2/pokemon/2/"}]}`))
	}))
	defer srv.Close()

	items, count, err := newTestClient(srv.URL).List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1302 {
		t.Fatalf("count = %d, want 1302", count)
	}
	if len(items) != 2 || items[0].ID != 1 || items[1].Name != "ivysaur" {
		t.Fatalf("unexpected items %+v", items)
	}
	if items[0].Sprite == "" {
		t.Fatalf("expected sprite URL to be filled in")
	}
}
