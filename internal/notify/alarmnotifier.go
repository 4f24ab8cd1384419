package notify

import (
	"fmt"
	"log/slog"

	"github.com/runwatch/runwatch/internal/alarm"
)

// AlarmNotifier adapts the notification fan-out to the dispatcher's
// Notifier interface. One instance serves both breach and recovery
// notifications; the transition state drives the rendered message.
type AlarmNotifier struct {
	Services map[string]ServiceDef
	Refs     []Ref
	Template string
	Globals  map[string]any
	Prefix   string
	DryRun   bool
	Logger   *slog.Logger
}

// Notify renders and sends the transition to every configured target. The
// first delivery failure aborts the fan-out and is returned to the caller.
func (n *AlarmNotifier) Notify(tr alarm.Transition) error {
	data := BuildTemplateData(n.Globals, n.Prefix, tr)

	targets, err := ResolveTargets(n.Refs, n.Services, n.Template, data)
	if err != nil {
		return fmt.Errorf("resolving targets: %w", err)
	}

	for _, t := range targets {
		if n.DryRun {
			if err := Validate(t); err != nil {
				return err
			}
			n.Logger.Info("would notify (dry-run)", "service", t.ServiceName, "message", t.Message)
			continue
		}
		n.Logger.Info("sending notification", "service", t.ServiceName, "state", tr.To)
		if err := Send(t); err != nil {
			return err
		}
	}
	return nil
}

// DefaultTemplate is used when the config does not set one.
const DefaultTemplate = `{{alarm.state_emoji}} {{alarm.name}} on {{globals.hostname}} is {{alarm.state}} (was {{alarm.previous}}, {{alarm.count}} failures)`
