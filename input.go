package egocar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrDuplicateBinding = errors.New("key bound more than once")

type ActionKind uint8

const (
	ActionAdvance ActionKind = iota
	ActionRetreat
	ActionTurnLeft
	ActionTurnRight
)

var actionNames = map[ActionKind]string{
	ActionAdvance:   "advance",
	ActionRetreat:   "retreat",
	ActionTurnLeft:  "turn-left",
	ActionTurnRight: "turn-right",
}

var actionAliases = map[string]ActionKind{
	"advance":    ActionAdvance,
	"forward":    ActionAdvance,
	"retreat":    ActionRetreat,
	"backward":   ActionRetreat,
	"turn-left":  ActionTurnLeft,
	"left":       ActionTurnLeft,
	"turn-right": ActionTurnRight,
	"right":      ActionTurnRight,
}

func (a ActionKind) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction accepts an action name or alias, case-insensitively
func ParseAction(name string) (ActionKind, error) {
	if a, ok := actionAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// ParseActions parses a comma separated action script such as
// "advance,advance,turn-left". Empty items are skipped.
func ParseActions(script string) ([]ActionKind, error) {
	actions := make([]ActionKind, 0)
	for _, item := range strings.Split(script, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		a, err := ParseAction(item)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// InputBinding maps a key name, as understood by the renderer, to an action
type InputBinding struct {
	Key    string
	Action ActionKind
}

// DefaultBindings returns the W/S/A/D layout
func DefaultBindings() []InputBinding {
	return []InputBinding{
		{Key: "W", Action: ActionAdvance},
		{Key: "S", Action: ActionRetreat},
		{Key: "A", Action: ActionTurnLeft},
		{Key: "D", Action: ActionTurnRight},
	}
}

// NormalizeKey maps a user key name to its canonical form: upper case, with
// browser style arrow names folded to UP, DOWN, LEFT and RIGHT
func NormalizeKey(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "ARROWUP", "ARROW_UP":
		return "UP"
	case "ARROWDOWN", "ARROW_DOWN":
		return "DOWN"
	case "ARROWLEFT", "ARROW_LEFT":
		return "LEFT"
	case "ARROWRIGHT", "ARROW_RIGHT":
		return "RIGHT"
	}
	return name
}

// ParseBindings converts a key -> action name table, sorted by key. Key names
// are normalized; two names for the same key are an error.
func ParseBindings(table map[string]string) ([]InputBinding, error) {
	bindings := make([]InputBinding, 0, len(table))
	seen := make(map[string]string, len(table))
	for key, name := range table {
		a, err := ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", key, err)
		}
		normalized := NormalizeKey(key)
		if prev, ok := seen[normalized]; ok {
			return nil, fmt.Errorf("%w: %q and %q both name %s", ErrDuplicateBinding, prev, key, normalized)
		}
		seen[normalized] = key
		bindings = append(bindings, InputBinding{Key: normalized, Action: a})
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Key < bindings[j].Key
	})
	return bindings, nil
}
