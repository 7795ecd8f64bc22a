// Package ops runs bulk operations against the selected team.
package ops

import (
	"context"

	"github.com/crewsync/crewsync/internal/command"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/crewsync/crewsync/internal/team"
)

// Coordinator fans a single operation out to every non-lead member of
// the selected team. Delivery is strictly sequential in config order;
// a failed member is logged and skipped, the rest still receive the
// operation. The boolean result reports whether every delivery
// succeeded.
type Coordinator struct {
	store *team.Store
	cmd   command.Commander
	log   *logging.Logger
}

// NewCoordinator creates a Coordinator over the store's selection.
func NewCoordinator(store *team.Store, cmd command.Commander, log *logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop()
	}
	return &Coordinator{store: store, cmd: cmd, log: log.WithComponent("ops")}
}

// Broadcast sends content to every non-lead member of teamName.
// It returns false without sending anything if teamName is not the
// current selection.
func (c *Coordinator) Broadcast(ctx context.Context, teamName, content string) bool {
	return c.each(ctx, teamName, "broadcast", func(member string) error {
		return c.cmd.MessageTeammate(ctx, teamName, member, content)
	})
}

// ShutdownAll asks every non-lead member of teamName to shut down.
// Like Broadcast, it requires teamName to be the current selection.
func (c *Coordinator) ShutdownAll(ctx context.Context, teamName string) bool {
	return c.each(ctx, teamName, "shutdown", func(member string) error {
		return c.cmd.ShutdownTeammate(ctx, teamName, member)
	})
}

func (c *Coordinator) each(ctx context.Context, teamName, op string, send func(member string) error) bool {
	if teamName == "" || c.store.Selected() != teamName {
		c.log.Warn("bulk operation skipped, team not selected", "op", op, "team", teamName)
		return false
	}
	snap, ok := c.store.Team(teamName)
	if !ok {
		c.log.Warn("bulk operation skipped, team unknown", "op", op, "team", teamName)
		return false
	}

	allOK := true
	for _, m := range snap.Config.NonLeadMembers() {
		if err := ctx.Err(); err != nil {
			c.log.Warn("bulk operation interrupted", "op", op, "team", teamName, "error", err)
			return false
		}
		if err := send(m.Name); err != nil {
			c.log.Warn("bulk operation failed for member",
				"op", op, "team", teamName, "member", m.Name, "error", err)
			allOK = false
		}
	}
	return allOK
}
