// File: internal/computer/keys.go
package computer

import "strings"

// keyAliases folds the spellings a model tends to use onto one canonical name.
var keyAliases = map[string]string{
	"ctrl":     "ctrl",
	"control":  "ctrl",
	"alt":      "alt",
	"option":   "alt",
	"shift":    "shift",
	"command":  "command",
	"tab":      "tab",
	"enter":    "enter",
	"return":   "enter",
	"esc":      "esc",
	"escape":   "esc",
	"space":    "space",
	"spacebar": "space",
	"up":       "up",
	"down":     "down",
	"left":     "left",
	"right":    "right",
}

// NormalizeKeys turns a combination such as "Ctrl+Shift+Esc" into the ordered
// canonical key names to press together.
func NormalizeKeys(text string) []string {
	parts := strings.Split(strings.ReplaceAll(strings.ToLower(text), "super", "command"), "+")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		key := strings.TrimSpace(part)
		if key == "cmd" {
			key = "command"
		}
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		keys = append(keys, key)
	}
	return keys
}
