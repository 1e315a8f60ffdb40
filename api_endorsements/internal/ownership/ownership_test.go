package ownership

import (
	"testing"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
)

const (
	owner   = "123456789012345678"
	dev     = "223456789012345678"
	visitor = "323456789012345678"
)

func TestAuthorized(t *testing.T) {
	community := &store.Item{
		Ref:         store.ItemRef{Type: store.ItemTypeCommunity, ID: "900000000000000001"},
		OwnerID:     owner,
		Maintainers: []string{dev},
	}
	agent := &store.Item{
		Ref:         store.ItemRef{Type: store.ItemTypeAgent, ID: "900000000000000002"},
		OwnerID:     owner,
		Maintainers: []string{dev, visitor},
	}

	tests := []struct {
		name  string
		item  *store.Item
		actor string
		want  bool
	}{
		{"community owner", community, owner, true},
		{"community co-maintainer", community, dev, false},
		{"community stranger", community, "423456789012345678", false},
		{"agent developer", agent, dev, true},
		{"agent second developer", agent, visitor, true},
		{"agent owner not listed as developer", agent, owner, false},
		{"empty actor", community, "", false},
		{"nil item", nil, owner, false},
		{"unknown type", &store.Item{Ref: store.ItemRef{Type: "server"}, OwnerID: owner}, owner, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorized(tt.item, tt.actor); got != tt.want {
				t.Fatalf("Authorized = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentitiesSkipsBlankDevelopers(t *testing.T) {
	agent := &store.Item{
		Ref:         store.ItemRef{Type: store.ItemTypeAgent},
		Maintainers: []string{"", dev},
	}
	ids := Identities(agent)
	if len(ids) != 1 || ids[0] != dev {
		t.Fatalf("unexpected identities %v", ids)
	}
	if Authorized(agent, "") {
		t.Fatal("blank actor must never match a blank developer")
	}
}
