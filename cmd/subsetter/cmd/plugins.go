package cmd

import (
	"fmt"

	"github.com/relsubset/subsetter/internal/plugin"
)

// registerBuiltinPlugins wires the plugins shipped with the binary itself
// into the registry the --import flag draws from.
func registerBuiltinPlugins(reg *plugin.Registry) {
	reg.Register("audit-log", newAuditLogListener)
}

// auditLogListener prints one line per admitted row, for users who want a
// visible trail of what a run pulled in without turning on debug logging.
type auditLogListener struct {
	runLabel string
}

func newAuditLogListener(host plugin.Host) (plugin.Listener, error) {
	return &auditLogListener{runLabel: host.RunLabel()}, nil
}

func (l *auditLogListener) OnRowAdded(event plugin.RowAddedEvent) {
	kind := "requested"
	if event.Prioritized {
		kind = "required"
	}
	fmt.Printf("[%s] %s.%s admitted (%s)\n", l.runLabel, event.Schema, event.Table, kind)
}
