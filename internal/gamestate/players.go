package gamestate

import (
	"encoding/json"
	"fmt"
)

// Player is the typed view of one element of the Players array.
type Player struct {
	PlayerID int64           `json:"PlayerId"`
	Login    string          `json:"Login"`
	List     json.RawMessage `json:"List"`
}

// Players is the player list of a document. Ids are unique within the list
// after every mutation made through this type.
type Players struct {
	items []Object
	ids   []int64
}

func (p *Players) Len() int {
	return len(p.items)
}

func (p *Players) IDs() []int64 {
	return append([]int64(nil), p.ids...)
}

func (p *Players) Has(id int64) bool {
	return p.index(id) >= 0
}

// NextID returns the smallest positive id not used by any player. Ids freed
// by a removal are handed out again.
func (p *Players) NextID() int64 {
	used := make(map[int64]struct{}, len(p.ids))
	for _, id := range p.ids {
		used[id] = struct{}{}
	}

	id := int64(1)
	for {
		if _, ok := used[id]; !ok {
			return id
		}
		id++
	}
}

// Add appends a player under the next free id and returns that id.
func (p *Players) Add(login string, list json.RawMessage) (int64, error) {
	id := p.NextID()

	var o Object
	if err := o.SetValue(keyPlayerID, id); err != nil {
		return 0, err
	}
	if err := o.SetValue(keyLogin, login); err != nil {
		return 0, err
	}
	o.Set(keyList, list)

	p.items = append(p.items, o)
	p.ids = append(p.ids, id)
	return id, nil
}

// Remove deletes the player with the given id. It reports whether a player
// was removed.
func (p *Players) Remove(id int64) bool {
	i := p.index(id)
	if i < 0 {
		return false
	}
	p.items = append(p.items[:i], p.items[i+1:]...)
	p.ids = append(p.ids[:i], p.ids[i+1:]...)
	return true
}

// Update replaces Login and List of the player with the given id. The id and
// any other field of the player are left as they are.
func (p *Players) Update(id int64, login string, list json.RawMessage) (bool, error) {
	i := p.index(id)
	if i < 0 {
		return false, nil
	}
	if err := p.items[i].SetValue(keyLogin, login); err != nil {
		return false, err
	}
	p.items[i].Set(keyList, list)
	return true, nil
}

// Get decodes the player with the given id.
func (p *Players) Get(id int64) (Player, bool, error) {
	i := p.index(id)
	if i < 0 {
		return Player{}, false, nil
	}
	pl, err := decodePlayer(&p.items[i], p.ids[i])
	if err != nil {
		return Player{}, false, err
	}
	return pl, true, nil
}

// All decodes every player in list order.
func (p *Players) All() ([]Player, error) {
	out := make([]Player, 0, len(p.items))
	for i := range p.items {
		pl, err := decodePlayer(&p.items[i], p.ids[i])
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, nil
}

func (p *Players) index(id int64) int {
	for i, v := range p.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (p *Players) marshal() (json.RawMessage, error) {
	items := p.items
	if items == nil {
		items = []Object{}
	}
	raw, err := encode(items)
	if err != nil {
		return nil, fmt.Errorf("gamestate: encode players: %w", err)
	}
	return raw, nil
}

func decodePlayer(o *Object, id int64) (Player, error) {
	pl := Player{PlayerID: id}
	if raw, ok := o.Get(keyLogin); ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &pl.Login); err != nil {
			return Player{}, fmt.Errorf("gamestate: player %d: Login: %w", id, err)
		}
	}
	if raw, ok := o.Get(keyList); ok {
		pl.List = raw
	}
	return pl, nil
}
