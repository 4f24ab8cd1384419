package notify

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/runwatch/runwatch/internal/alarm"
)

// TemplateData holds all data available to notification templates.
type TemplateData struct {
	Globals map[string]any
	Alarm   map[string]string
}

// BuildTemplateData constructs template data from an alarm transition and
// the configured globals. prefix is the resource naming prefix, surfaced to
// templates as the alarm name.
func BuildTemplateData(globals map[string]any, prefix string, tr alarm.Transition) TemplateData {
	a := map[string]string{
		"name":        prefix,
		"state":       string(tr.To),
		"previous":    string(tr.From),
		"count":       strconv.Itoa(tr.Count),
		"at":          tr.At.Format("2006-01-02 15:04:05 MST"),
		"state_emoji": stateEmoji(tr.To),
	}
	return TemplateData{
		Globals: globals,
		Alarm:   a,
	}
}

func stateEmoji(state alarm.State) string {
	switch state {
	case alarm.StateAlarm:
		return "\U0001f534" // 🔴
	case alarm.StateOK:
		return "\U0001f7e2" // 🟢
	default:
		return "❓" // ❓
	}
}

// Render executes a Go text/template string with Sprig functions and the
// custom accessor functions (alarm, globals):
// "alarm" returns the alarm map, then ".state" accesses a key.
func Render(tmplStr string, data TemplateData) (string, error) {
	funcMap := sprig.TxtFuncMap()

	funcMap["alarm"] = func() map[string]string { return data.Alarm }
	funcMap["globals"] = func() map[string]any { return data.Globals }

	t, err := template.New("notify").Funcs(funcMap).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
