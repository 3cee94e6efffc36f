// Package store defines the persistence interface for session state: emitted
// content, materialized events, applied resolutions, and character snapshots.
// In-memory engines remain the source of truth during a session; the store is
// the durable record that survives restarts.
package store

import (
	"context"

	"storyloom/internal/narrative"
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	SaveContent(ctx context.Context, content narrative.Content) error
	ListContent(ctx context.Context, sessionID string) ([]narrative.Content, error)
	// ReplaceContent swaps a session's whole history in one transaction,
	// used when a retroactive batch commits.
	ReplaceContent(ctx context.Context, sessionID string, history []narrative.Content) error

	SaveEvent(ctx context.Context, event narrative.NarrativeEvent) error
	ListEvents(ctx context.Context, sessionID string) ([]narrative.NarrativeEvent, error)
	DeleteEvents(ctx context.Context, sessionID string, eventIDs []string) error

	SaveResolution(ctx context.Context, sessionID string, resolution narrative.Resolution) error
	ListResolutions(ctx context.Context, sessionID string) ([]narrative.Resolution, error)

	SaveSnapshot(ctx context.Context, sessionID string, snapshot narrative.CharacterTraitSnapshot) error
	ListSnapshots(ctx context.Context, sessionID, characterID string) ([]narrative.CharacterTraitSnapshot, error)

	Sessions(ctx context.Context) ([]string, error)
}
