// Package usersink forwards map editing activity to a go-users ActivitySink,
// so hosts that already audit user actions can record drawing and editing
// next to everything else.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-geoman/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook turns map events into go-users activity records. The "pm:" verb
// prefix is replaced by VerbPrefix, so "pm:create" is recorded as
// VerbPrefix+"create". TenantID is attached to every record when set.
type Hook struct {
	Sink       usertypes.ActivitySink
	TenantID   uuid.UUID
	VerbPrefix string
}

// Notify records event. Events without a verb or object type are skipped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(activity.NormalizeEvent(event)))
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	actor := actorID(event.ActorID)
	data := make(map[string]any, len(event.Metadata)+1)
	for key, value := range event.Metadata {
		data[key] = value
	}
	if event.MapID != "" {
		data["map_id"] = event.MapID
	}
	if len(data) == 0 {
		data = nil
	}
	return usertypes.ActivityRecord{
		ActorID:    actor,
		UserID:     actor,
		TenantID:   h.TenantID,
		Verb:       h.VerbPrefix + strings.TrimPrefix(event.Verb, "pm:"),
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

// actorID maps a host actor to a user ID. Anything that is not a UUID is
// recorded as uuid.Nil.
func actorID(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}
