// Package gamestate reads and rewrites the State document of a live game.
//
// A State document is a JSON object. The only part this package interprets is
// the Players array; every other key, and every unknown key of a player
// object, is carried through a rewrite unchanged and in its original order.
package gamestate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	keyPlayers  = "Players"
	keyPlayerID = "PlayerId"
	keyLogin    = "Login"
	keyList     = "List"
)

var (
	// ErrNoState is returned when the state is null or is not a JSON object.
	ErrNoState = errors.New("gamestate: state is null")
	// ErrNoPlayers is returned when the document has no Players array.
	ErrNoPlayers = errors.New("gamestate: Players is null")
	// ErrMalformedPlayers is returned when Players is not an array of player
	// objects with integer ids.
	ErrMalformedPlayers = errors.New("gamestate: Players is malformed")
)

type Document struct {
	root Object
}

// Parse parses a state document. A nil state and a state that is not a JSON
// object both yield ErrNoState.
func Parse(state *string) (*Document, error) {
	if state == nil {
		return nil, ErrNoState
	}

	var root Object
	if err := json.Unmarshal([]byte(*state), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoState, err)
	}

	return &Document{root: root}, nil
}

// Players returns the typed player list of the document.
func (d *Document) Players() (*Players, error) {
	raw, ok := d.root.Get(keyPlayers)
	if !ok || isNull(raw) {
		return nil, ErrNoPlayers
	}

	var items []Object
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlayers, err)
	}

	p := &Players{items: items, ids: make([]int64, len(items))}
	for i := range items {
		id, err := playerID(&items[i])
		if err != nil {
			return nil, fmt.Errorf("%w: player #%d: %v", ErrMalformedPlayers, i, err)
		}
		p.ids[i] = id
	}

	return p, nil
}

// SetPlayers writes the player list back under the Players key, keeping the
// key at its position.
func (d *Document) SetPlayers(p *Players) error {
	raw, err := p.marshal()
	if err != nil {
		return err
	}
	d.root.Set(keyPlayers, raw)
	return nil
}

// Get returns the raw value of a top level key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	return d.root.Get(key)
}

// Keys returns the top level keys in document order.
func (d *Document) Keys() []string {
	return d.root.Keys()
}

// Encode renders the document indented by two spaces. Non-ASCII text and HTML
// characters are written literally.
func (d *Document) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d.root); err != nil {
		return "", fmt.Errorf("gamestate: encode: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func playerID(o *Object) (int64, error) {
	raw, ok := o.Get(keyPlayerID)
	if !ok {
		return 0, errors.New("missing PlayerId")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("PlayerId: %v", err)
	}
	id, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("PlayerId %s is not an integer", n)
	}
	return id, nil
}
