package combat

import (
	"strings"

	"tickbot.ai/internal/game"
	"tickbot.ai/internal/task"
)

// NearestSelector picks the closest living NPC matching IDs or Names.
// NPCs already attacking the player come first; NPCs fighting someone else
// are skipped.
type NearestSelector struct {
	NPCIDs []int
	Names  []string
	// MaxDistance limits the search radius; zero means unlimited.
	MaxDistance int
}

func (s NearestSelector) Select(ctx *task.Context, exclude map[int]bool) (game.NPC, bool) {
	var best game.NPC
	found := false
	bestDist := 0
	for _, n := range ctx.World.NPCs {
		if n.Dead || exclude[n.Index] || !s.matches(n) {
			continue
		}
		if n.InCombat && !n.TargetingMe {
			continue
		}
		d := ctx.Player.Pos.DistanceTo(n.Pos)
		if s.MaxDistance > 0 && d > s.MaxDistance {
			continue
		}
		if !found || better(n, d, best, bestDist) {
			best, bestDist, found = n, d, true
		}
	}
	return best, found
}

func better(n game.NPC, d int, cur game.NPC, curDist int) bool {
	if n.TargetingMe != cur.TargetingMe {
		return n.TargetingMe
	}
	return d < curDist
}

func (s NearestSelector) matches(n game.NPC) bool {
	if len(s.NPCIDs) == 0 && len(s.Names) == 0 {
		return true
	}
	for _, id := range s.NPCIDs {
		if n.ID == id {
			return true
		}
	}
	for _, name := range s.Names {
		if strings.EqualFold(n.Name, name) {
			return true
		}
	}
	return false
}
