package engine

import (
	"duotaire/internal/cards"
	"duotaire/internal/model"
)

// BuildSnapshot renders the room's full state as seen by viewer. The
// viewer's own drawn card is visible; the opponent's is always omitted.
// Other players' decks are exposed by size only.
func BuildSnapshot(r *model.Room, viewer model.SeatIndex) model.Snapshot {
	snap := model.Snapshot{
		RoomCode:      r.Code,
		Phase:         r.Phase,
		CurrentPlayer: r.CurrentPlayer,
		Winner:        r.Winner,
		StateVersion:  r.StateVersion,
		CenterPiles:   r.CenterPiles,
		Foundations:   r.Foundations,
	}
	for _, seat := range []model.SeatIndex{model.SeatHost, model.SeatGuest} {
		p := r.Players[seat]
		if p == nil {
			continue
		}
		view := model.PlayerView{
			Index:       p.Index,
			Name:        p.Name,
			Connected:   p.Connected,
			DeckSize:    len(p.Deck),
			DiscardPile: append([]cards.Card(nil), p.Discard...),
		}
		if seat == viewer && seat == r.CurrentPlayer {
			view.DrawnCard = r.DrawnCard
		}
		snap.Players[seat] = view
	}
	return snap
}

// BuildDelta diffs two snapshots taken from the same viewer's perspective
// and reports only the top-level fields that changed. The engine exposes
// both a full snapshot (BuildSnapshot) and this delta view; choosing
// between them for a given broadcast is a transport policy, not visible
// to the engine itself.
func BuildDelta(prev, curr model.Snapshot) model.Delta {
	d := model.Delta{FromVersion: prev.StateVersion, ToVersion: curr.StateVersion, Changed: map[string]any{}}
	if prev.Phase != curr.Phase {
		d.Changed["phase"] = curr.Phase
	}
	if prev.CurrentPlayer != curr.CurrentPlayer {
		d.Changed["currentPlayer"] = curr.CurrentPlayer
	}
	if prev.Winner != curr.Winner {
		d.Changed["winner"] = curr.Winner
	}
	if !centerPilesEqual(prev, curr) {
		d.Changed["centerPiles"] = curr.CenterPiles
	}
	if !foundationsEqual(prev, curr) {
		d.Changed["foundations"] = curr.Foundations
	}
	if !playersEqual(prev, curr) {
		d.Changed["players"] = curr.Players
	}
	return d
}

func centerPilesEqual(a, b model.Snapshot) bool {
	for i := range a.CenterPiles {
		if len(a.CenterPiles[i].Cards) != len(b.CenterPiles[i].Cards) {
			return false
		}
		for j := range a.CenterPiles[i].Cards {
			if a.CenterPiles[i].Cards[j] != b.CenterPiles[i].Cards[j] {
				return false
			}
		}
	}
	return true
}

func foundationsEqual(a, b model.Snapshot) bool {
	for i := range a.Foundations {
		if len(a.Foundations[i].Cards) != len(b.Foundations[i].Cards) {
			return false
		}
		for j := range a.Foundations[i].Cards {
			if a.Foundations[i].Cards[j] != b.Foundations[i].Cards[j] {
				return false
			}
		}
	}
	return true
}

func playersEqual(a, b model.Snapshot) bool {
	for i := range a.Players {
		pa, pb := a.Players[i], b.Players[i]
		if pa.Name != pb.Name || pa.Connected != pb.Connected || pa.DeckSize != pb.DeckSize {
			return false
		}
		if len(pa.DiscardPile) != len(pb.DiscardPile) {
			return false
		}
		if (pa.DrawnCard == nil) != (pb.DrawnCard == nil) {
			return false
		}
		if pa.DrawnCard != nil && *pa.DrawnCard != *pb.DrawnCard {
			return false
		}
	}
	return true
}
