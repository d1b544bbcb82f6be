package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/ports"
)

// ListSessions prints every stored session with its mode and length.
func ListSessions(ctx context.Context, store ports.SessionStore, w io.Writer) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	fmt.Fprintln(w, "Sessions:")
	for _, id := range ids {
		session, err := store.Load(ctx, id)
		if err != nil {
			// Expired or removed between List and Load.
			fmt.Fprintf(w, "- %s (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Fprintf(w, "- %s  %s  %d messages\n", id, session.Mode, len(session.Transcript))
	}
	return nil
}

// InspectSession prints one session as indented JSON.
func InspectSession(ctx context.Context, store ports.SessionStore, sessionID string, w io.Writer) error {
	session, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling session: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveSessions deletes each session, reporting per ID.
// Missing sessions are reported but do not fail the call.
func RemoveSessions(ctx context.Context, store ports.SessionStore, ids []string, w io.Writer) error {
	var errs []error
	for _, id := range ids {
		if _, err := store.Load(ctx, id); errors.Is(err, domain.ErrSessionNotFound) {
			fmt.Fprintf(w, "Session '%s' not found\n", id)
			continue
		}
		if err := store.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			errs = append(errs, fmt.Errorf("remove %s: %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}
