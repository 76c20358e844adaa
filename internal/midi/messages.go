package midi

import (
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Controller numbers used by this package.
const (
	CCBankSelectMSB       uint8 = 0
	CCVolume              uint8 = 7
	CCPan                 uint8 = 10
	CCBankSelectLSB       uint8 = 32
	CCSustain             uint8 = 64
	CCReverbDepth         uint8 = 91
	CCChorusDepth         uint8 = 93
	CCResetAllControllers uint8 = 121
	CCAllNotesOff         uint8 = 123
)

// NumChannels is the number of MIDI channels.
const NumChannels = 16

// PatchMessages returns the messages selecting addr on channel: bank select
// byte(s) as dictated by the method, then the Program Change. Undefined bank
// bytes are skipped.
func PatchMessages(channel uint8, addr Address) []gomidi.Message {
	var msgs []gomidi.Message
	sendMSB, sendLSB := false, false
	switch addr.Method() {
	case MethodMSBLSB, MethodUndefined:
		sendMSB, sendLSB = true, true
	case MethodMSBOnly:
		sendMSB = true
	case MethodLSBOnly:
		sendLSB = true
	}
	if sendMSB && addr.BankMSB() >= 0 {
		msgs = append(msgs, gomidi.ControlChange(channel, CCBankSelectMSB, uint8(addr.BankMSB())))
	}
	if sendLSB && addr.BankLSB() >= 0 {
		msgs = append(msgs, gomidi.ControlChange(channel, CCBankSelectLSB, uint8(addr.BankLSB())))
	}
	return append(msgs, gomidi.ProgramChange(channel, uint8(addr.ProgramChange())))
}

// PanicMessages returns, for every channel, sustain off, all notes off and
// reset all controllers.
func PanicMessages() []gomidi.Message {
	msgs := make([]gomidi.Message, 0, NumChannels*3)
	for ch := uint8(0); ch < NumChannels; ch++ {
		msgs = append(msgs,
			gomidi.ControlChange(ch, CCSustain, 0),
			gomidi.ControlChange(ch, CCAllNotesOff, 0),
			gomidi.ControlChange(ch, CCResetAllControllers, 0),
		)
	}
	return msgs
}

func Volume(channel, value uint8) gomidi.Message {
	return gomidi.ControlChange(channel, CCVolume, clamp7(int(value)))
}

func Pan(channel, value uint8) gomidi.Message {
	return gomidi.ControlChange(channel, CCPan, clamp7(int(value)))
}

func ReverbDepth(channel, value uint8) gomidi.Message {
	return gomidi.ControlChange(channel, CCReverbDepth, clamp7(int(value)))
}

func ChorusDepth(channel, value uint8) gomidi.Message {
	return gomidi.ControlChange(channel, CCChorusDepth, clamp7(int(value)))
}

// ScaleVolume applies the master volume factor to a Volume control change.
// Any other message is returned unchanged. A factor of 1 is the identity.
func ScaleVolume(msg gomidi.Message, factor float64) gomidi.Message {
	var channel, controller, value uint8
	if !msg.GetControlChange(&channel, &controller, &value) || controller != CCVolume {
		return msg
	}
	if factor == 1 {
		return msg
	}
	scaled := int(math.Round(float64(value) * factor))
	return gomidi.ControlChange(channel, CCVolume, clamp7(scaled))
}

func clamp7(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
