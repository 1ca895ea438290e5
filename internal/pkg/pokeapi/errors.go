package pokeapi

import "errors"

// ErrNotFound reports that PokeAPI has no resource under the requested name or id.
var ErrNotFound = errors.New("pokemon not found")
