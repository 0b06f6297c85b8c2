package repository

import (
	"encoding/json"
)

// extractActionTargets достаёт целевые поля из JSON действий правила
// без полной компиляции (объект или список объектов с ключом target).
func extractActionTargets(raw []byte) []string {
	var targets []string

	collect := func(obj map[string]interface{}) {
		if target, ok := obj["target"].(string); ok && target != "" {
			targets = append(targets, target)
		}
	}

	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, obj := range list {
			collect(obj)
		}
		return targets
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		collect(obj)
	}
	return targets
}
