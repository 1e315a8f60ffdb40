package handlers

import (
	"context"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/endorse"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
)

type EndorsementService interface {
	Endorse(ctx context.Context, req endorse.Request) endorse.Result
	Pin(ctx context.Context, req endorse.Request) endorse.Result
	IssuePinToken(ctx context.Context, actorID, itemID, itemType string) endorse.TokenResult
	Status(ctx context.Context, actorID, itemID, itemType string) endorse.StatusResult
}

type ItemSyncer interface {
	UpsertItem(ctx context.Context, item store.ItemSync) error
}
