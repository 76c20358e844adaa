package synth

import (
	"testing"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstrument(t *testing.T) {
	addr := midi.MustAddress(0, midi.Undefined, midi.Undefined, midi.MethodUndefined)

	_, err := NewInstrument("  ", addr, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ins, err := NewInstrument("Lead", addr, nil)
	require.NoError(t, err)
	assert.Equal(t, Melodic{}, ins.Role())
	assert.False(t, ins.IsDrumKit())
	assert.Nil(t, ins.Substitute())
	assert.Nil(t, ins.Bank())
	assert.Nil(t, ins.Synth())
	assert.Equal(t, "Lead", ins.FullName())
}

func TestNewInstrument_SubstituteMustBeGM1(t *testing.T) {
	addr := midi.MustAddress(3, midi.Undefined, midi.Undefined, midi.MethodUndefined)
	gm := NewGMSynth()

	notGM, err := NewInstrument("Custom", addr, nil)
	require.NoError(t, err)
	_, err = NewInstrument("Lead", addr, Melodic{Substitute: notGM})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	piano := DefaultInstrument(gm)
	require.NotNil(t, piano)
	require.True(t, piano.IsGM1())
	ins, err := NewInstrument("Lead", addr, Melodic{Substitute: piano})
	require.NoError(t, err)
	assert.Same(t, piano, ins.Substitute())

	// the drums bank of the GM synth is not a GM1 bank
	kit := DefaultDrums(gm)
	require.NotNil(t, kit)
	assert.False(t, kit.IsGM1())
	_, err = NewInstrument("Lead", addr, Melodic{Substitute: kit})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewInstrumentFromParts(t *testing.T) {
	addr := midi.MustAddress(0, midi.Undefined, midi.Undefined, midi.MethodUndefined)
	kit := DrumKit{Type: KitPower, KeyMap: KeyMapXG}
	piano := DefaultInstrument(NewGMSynth())

	_, err := NewInstrumentFromParts("Both", addr, &kit, piano)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	drums, err := NewInstrumentFromParts("Power", addr, &kit, nil)
	require.NoError(t, err)
	got, ok := drums.DrumKit()
	require.True(t, ok)
	assert.Equal(t, kit, got)
	assert.Nil(t, drums.Substitute())

	melodic, err := NewInstrumentFromParts("Keys", addr, nil, piano)
	require.NoError(t, err)
	_, ok = melodic.DrumKit()
	assert.False(t, ok)
	assert.Same(t, piano, melodic.Substitute())
}

func TestInstrument_WireMessages(t *testing.T) {
	s, err := NewMidiSynth("Module", "Acme")
	require.NoError(t, err)
	b := newTestBank(t, "User", 1, 2, midi.MethodMSBLSB)
	require.NoError(t, s.AddBank(b))
	ins := newTestInstrument(t, "Lead", 12, midi.Undefined, midi.Undefined, midi.MethodUndefined, nil)
	require.NoError(t, b.Add(ins))

	msgs := ins.WireMessages(3)
	require.Len(t, msgs, 3)

	var ch, ctl, val uint8
	require.True(t, msgs[0].GetControlChange(&ch, &ctl, &val))
	assert.Equal(t, []uint8{3, midi.CCBankSelectMSB, 1}, []uint8{ch, ctl, val})
	require.True(t, msgs[1].GetControlChange(&ch, &ctl, &val))
	assert.Equal(t, []uint8{3, midi.CCBankSelectLSB, 2}, []uint8{ch, ctl, val})
	var prog uint8
	require.True(t, msgs[2].GetProgramChange(&ch, &prog))
	assert.Equal(t, uint8(12), prog)

	assert.Equal(t, "Module - Lead", ins.FullName())
	assert.Same(t, s, ins.Synth())
}

func TestInstrument_SaveTokenRequiresSynth(t *testing.T) {
	b := newTestBank(t, "Loose", 0, 0, midi.MethodPCOnly)
	ins := newTestInstrument(t, "Lead", 0, midi.Undefined, midi.Undefined, midi.MethodUndefined, nil)
	_, err := ins.SaveToken()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, b.Add(ins))
	_, err = ins.SaveToken()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewDrumKit(t *testing.T) {
	kit, err := NewDrumKit("", "")
	require.NoError(t, err)
	assert.Equal(t, DrumKit{Type: KitStandard, KeyMap: KeyMapGM}, kit)

	kit, err = NewDrumKit("jazz", "xg_perc")
	require.NoError(t, err)
	assert.Equal(t, DrumKit{Type: KitJazz, KeyMap: KeyMapXGPerc}, kit)
	assert.Equal(t, "JAZZ/XG_PERC", kit.String())

	_, err = NewDrumKit("disco", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewDrumKit("", "roland")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
