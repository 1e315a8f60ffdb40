// Package ownership decides who may perform privileged actions on an item.
package ownership

import (
	"slices"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
)

// Identities returns the actors allowed to pin the item. Community
// co-maintainers are recorded but are not owner-equivalent.
func Identities(item *store.Item) []string {
	if item == nil {
		return nil
	}
	switch item.Ref.Type {
	case store.ItemTypeCommunity:
		if item.OwnerID == "" {
			return nil
		}
		return []string{item.OwnerID}
	case store.ItemTypeAgent:
		out := make([]string, 0, len(item.Maintainers))
		for _, id := range item.Maintainers {
			if id != "" {
				out = append(out, id)
			}
		}
		return out
	default:
		return nil
	}
}

// Authorized reports whether actorID may pin the item
func Authorized(item *store.Item, actorID string) bool {
	if actorID == "" {
		return false
	}
	return slices.Contains(Identities(item), actorID)
}
