package actions

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Name
	}
	return out
}

func TestScript_OrderedGroupsFirst(t *testing.T) {
	s := NewScript()
	s.AddAction(NewAction("final panic", ActionTypePanic, ""))
	intro := NewActionGroup("intro")
	s.AddGroup(intro)
	pads := NewActionGroup("pads")
	pads.ParentGroupID = intro.ID
	s.AddGroup(pads)

	strings := NewAction("strings", ActionTypeInstrument, `{"channel":1}`)
	strings.ParentGroupID = pads.ID
	s.AddAction(strings)
	wait := NewAction("wait", ActionTypeSleep, "0")
	wait.ParentGroupID = intro.ID
	s.AddAction(wait)

	assert.Equal(t, []string{"strings", "wait", "final panic"}, names(s.Ordered()))
	assert.Equal(t, 1, s.GetAction(wait.ID).Order)
	assert.NotEmpty(t, s.Actions[0].ID)
}

func TestScript_RemoveGroupRemovesChildren(t *testing.T) {
	s := NewScript()
	outer := NewActionGroup("outer")
	s.AddGroup(outer)
	inner := NewActionGroup("inner")
	inner.ParentGroupID = outer.ID
	s.AddGroup(inner)
	nested := NewAction("nested", ActionTypePanic, "")
	nested.ParentGroupID = inner.ID
	s.AddAction(nested)
	s.AddAction(NewAction("root", ActionTypePanic, ""))

	assert.True(t, s.RemoveGroup(outer.ID))
	assert.False(t, s.RemoveGroup(outer.ID))
	assert.Empty(t, s.Groups)
	assert.Equal(t, []string{"root"}, names(s.Ordered()))
	assert.Nil(t, s.GetAction(nested.ID))

	root := s.Actions[0].ID
	assert.True(t, s.RemoveAction(root))
	assert.False(t, s.RemoveAction(root))
}

func TestScript_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	s := NewScript()
	s.AddAction(NewAction("volume", ActionTypeMidi, `{"msg_type":"cc","channel":1,"note":7,"velocity":100}`))
	s.Actions = append(s.Actions, Action{Name: "no id", Type: ActionTypePanic, Order: 1})
	require.NoError(t, s.Save(path))

	loaded, err := LoadScript(path)
	require.NoError(t, err)
	require.Len(t, loaded.Actions, 2)
	assert.Equal(t, s.Actions[0], loaded.Actions[0])
	assert.NotEmpty(t, loaded.Actions[1].ID)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
