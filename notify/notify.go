// Package notify derives notifications from relation and comment writes. It
// subscribes to the post-commit event bus; its failures never reach the actor
// whose write triggered the fan-out.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"forkful/apperr"
	"forkful/db"
	"forkful/events"
	"forkful/models"
	"forkful/store"
	"forkful/utils"
)

// Pusher delivers a freshly created notification to a connected recipient.
// Delivery is best effort.
type Pusher interface {
	Push(recipient string, payload any)
}

type Notifier struct {
	store store.Store
	push  Pusher
}

func NewNotifier(st store.Store, push Pusher) *Notifier {
	return &Notifier{store: st, push: push}
}

func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.RelationCreated, n.onCreated)
	bus.Subscribe(events.CommentCreated, n.onCreated)
	bus.Subscribe(events.RelationRemoved, n.onRemoved)
}

// onCreated re-reads the target at fan-out time: if it was deleted between
// the relation write and now, the notification is silently skipped.
func (n *Notifier) onCreated(ctx context.Context, payload any) error {
	ev, ok := payload.(events.RelationEvent)
	if !ok {
		return fmt.Errorf("notify: unexpected payload %T", payload)
	}

	recipient, recipeID, err := n.resolveTarget(ctx, ev)
	if err != nil {
		if err == store.ErrNotFound {
			log.Debug().Str("kind", ev.Kind).Str("target", ev.TargetID).Msg("fan-out target gone, skipping notification")
			return nil
		}
		return fmt.Errorf("notify: resolve target: %w", err)
	}
	if recipient == ev.Actor {
		return nil
	}

	notif := models.Notification{
		ID:        ev.ID,
		RecipeID:  recipeID,
		Type:      ev.Kind,
		Sender:    ev.Actor,
		Recipient: recipient,
		Read:      false,
		CreatedAt: utils.NowTimestamp(),
	}

	// Set rather than Create: a replayed event overwrites the same derived
	// document instead of failing.
	if err := n.store.Set(ctx, db.Notifications, notif.ID, notif); err != nil {
		return fmt.Errorf("notify: write notification %s: %w", notif.ID, err)
	}

	if n.push != nil {
		n.push.Push(recipient, notif)
	}
	return nil
}

// onRemoved deletes the notification sharing the source document's id,
// tolerating already-absent.
func (n *Notifier) onRemoved(ctx context.Context, payload any) error {
	ev, ok := payload.(events.RelationEvent)
	if !ok {
		return fmt.Errorf("notify: unexpected payload %T", payload)
	}
	if _, err := n.store.Delete(ctx, db.Notifications, ev.ID); err != nil {
		return fmt.Errorf("notify: delete notification %s: %w", ev.ID, err)
	}
	return nil
}

func (n *Notifier) resolveTarget(ctx context.Context, ev events.RelationEvent) (recipient, recipeID string, err error) {
	if ev.Kind == "follow" {
		var user models.User
		if err := n.store.Get(ctx, db.Users, ev.TargetID, &user); err != nil {
			return "", "", err
		}
		return user.Handle, "", nil
	}

	var recipe models.Recipe
	if err := n.store.Get(ctx, db.Recipes, ev.TargetID, &recipe); err != nil {
		return "", "", err
	}
	return recipe.UserHandle, recipe.ID, nil
}

// Inbox returns the recipient's notifications newest first, ten at a time.
// A non-empty before cursor restricts the page to strictly older entries.
func (n *Notifier) Inbox(ctx context.Context, recipient, before string) ([]models.Notification, error) {
	q := store.Query{
		Filters: []store.Filter{{Field: "recipient", Op: store.OpEq, Value: recipient}},
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   10,
	}
	if before != "" {
		q.Filters = append(q.Filters, store.Filter{Field: "createdAt", Op: store.OpLt, Value: before})
	}

	notifs := []models.Notification{}
	if err := n.store.Find(ctx, db.Notifications, q, &notifs); err != nil {
		return nil, fmt.Errorf("%w: list notifications: %v", apperr.ErrStoreFailure, err)
	}
	return notifs, nil
}

// MarkRead flags the given notifications as read in one atomic batch.
func (n *Notifier) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("no notification ids: %w", apperr.ErrValidationFailed)
	}

	ops := make([]store.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, store.Op{
			Kind:   store.OpUpdate,
			Coll:   db.Notifications,
			ID:     id,
			Update: store.Update{Set: store.M{"read": true}},
		})
	}
	if err := n.store.Batch(ctx, ops); err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("notification: %w", apperr.ErrNotFound)
		}
		return fmt.Errorf("%w: mark read: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}
