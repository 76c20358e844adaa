package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
)

// ActionType represents the type of action to execute
type ActionType string

const (
	ActionTypeInstrument ActionType = "instrument"
	ActionTypeMidi       ActionType = "midi"
	ActionTypePanic      ActionType = "panic"
	ActionTypeSleep      ActionType = "sleep"
)

// Action represents an executable action
type Action struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          ActionType `json:"type"`
	Code          string     `json:"code"`
	ParentGroupID string     `json:"parent_group_id,omitempty"` // Empty if root-level
	Order         int        `json:"order"`                     // For sorting within parent
}

// ActionGroup is a named folder containing actions and other groups
type ActionGroup struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ParentGroupID string `json:"parent_group_id,omitempty"`
	Order         int    `json:"order"`
}

// NewAction creates a new action with a generated ID
func NewAction(name string, actionType ActionType, code string) *Action {
	return &Action{
		ID:   uuid.New().String(),
		Name: name,
		Type: actionType,
		Code: code,
	}
}

// NewActionGroup creates a new action group with a generated ID
func NewActionGroup(name string) *ActionGroup {
	return &ActionGroup{
		ID:   uuid.New().String(),
		Name: name,
	}
}

// Script is a tree of actions and groups, as stored in an actions file
type Script struct {
	Actions []Action      `json:"actions"`
	Groups  []ActionGroup `json:"groups"`
}

// NewScript creates an empty script
func NewScript() *Script {
	return &Script{
		Actions: []Action{},
		Groups:  []ActionGroup{},
	}
}

// LoadScript reads a script from a JSON file. Actions without ID get one.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := NewScript()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("invalid actions file %s: %w", path, err)
	}
	for i := range s.Actions {
		if s.Actions[i].ID == "" {
			s.Actions[i].ID = uuid.New().String()
		}
	}
	return s, nil
}

// Save writes the script as indented JSON
func (s *Script) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// AddAction appends an action as the last child of its parent
func (s *Script) AddAction(action *Action) {
	action.Order = s.nextOrder(action.ParentGroupID)
	s.Actions = append(s.Actions, *action)
}

// AddGroup appends a group as the last child of its parent
func (s *Script) AddGroup(group *ActionGroup) {
	group.Order = s.nextOrder(group.ParentGroupID)
	s.Groups = append(s.Groups, *group)
}

func (s *Script) nextOrder(parentID string) int {
	maxOrder := -1
	for _, a := range s.Actions {
		if a.ParentGroupID == parentID && a.Order > maxOrder {
			maxOrder = a.Order
		}
	}
	for _, g := range s.Groups {
		if g.ParentGroupID == parentID && g.Order > maxOrder {
			maxOrder = g.Order
		}
	}
	return maxOrder + 1
}

// GetAction returns an action by ID, or nil if not found
func (s *Script) GetAction(id string) *Action {
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			return &s.Actions[i]
		}
	}
	return nil
}

// RemoveAction removes an action by ID
func (s *Script) RemoveAction(id string) bool {
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			s.Actions = append(s.Actions[:i], s.Actions[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveGroup removes a group by ID and all its children (recursively)
func (s *Script) RemoveGroup(id string) bool {
	found := false
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			s.Groups = append(s.Groups[:i], s.Groups[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	var childGroups []string
	for _, g := range s.Groups {
		if g.ParentGroupID == id {
			childGroups = append(childGroups, g.ID)
		}
	}
	for _, child := range childGroups {
		s.RemoveGroup(child)
	}
	kept := s.Actions[:0]
	for _, a := range s.Actions {
		if a.ParentGroupID != id {
			kept = append(kept, a)
		}
	}
	s.Actions = kept
	return true
}

// Ordered returns the actions in execution order: within a parent, groups
// (with their children) come before actions, both sorted by Order.
func (s *Script) Ordered() []Action {
	return s.ordered("")
}

func (s *Script) ordered(parentID string) []Action {
	var groups []ActionGroup
	for _, g := range s.Groups {
		if g.ParentGroupID == parentID {
			groups = append(groups, g)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Order < groups[j].Order
	})

	var actions []Action
	for _, a := range s.Actions {
		if a.ParentGroupID == parentID {
			actions = append(actions, a)
		}
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	var out []Action
	for _, g := range groups {
		out = append(out, s.ordered(g.ID)...)
	}
	return append(out, actions...)
}
