package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Render substitutes {{name}} placeholders in the system and user templates.
// Every required variable must be present and non-empty.
func (p *Prompt) Render(vars map[string]string) (system, user string, err error) {
	if p == nil {
		return "", "", fmt.Errorf("prompt is required")
	}
	var missing []string
	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", "", fmt.Errorf("prompt %s missing variables: %s", p.Config.Slug, strings.Join(missing, ", "))
	}

	system = applyVars(p.Config.SystemTemplate, vars)
	user = p.Config.UserTemplate
	if strings.TrimSpace(user) == "" {
		user = "{{input}}"
	}
	user = strings.TrimSpace(applyVars(user, vars))
	if strings.TrimSpace(system) == "" {
		return "", "", fmt.Errorf("system prompt is required")
	}
	return system, user, nil
}

func applyVars(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
