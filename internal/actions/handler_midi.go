package actions

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MidiHandler sends a single MIDI message
type MidiHandler struct {
	out Output
}

// MidiActionData structure for JSON storage in Code field
type MidiActionData struct {
	MsgType  string `json:"msg_type"` // "note_on", "note_off", "cc", "pc", "sysex"
	Channel  int    `json:"channel"`  // 1-16
	Note     int    `json:"note"`     // 0-127 (controller for CC)
	Velocity int    `json:"velocity"` // 0-127 (value for CC)
	Program  int    `json:"program"`  // 0-127
	SysEx    string `json:"sysex"`    // Hex string "F0 01 ... F7"
}

func NewMidiHandler(out Output) *MidiHandler {
	return &MidiHandler{out: out}
}

func (h *MidiHandler) Execute(_ context.Context, code string) (string, error) {
	msg, err := h.parse(code)
	if err != nil {
		return "", err
	}
	if err := h.out.Send(msg); err != nil {
		return "", fmt.Errorf("send failed: %w", err)
	}
	return fmt.Sprintf("Sent %s", msg), nil
}

func (h *MidiHandler) Validate(code string) error {
	_, err := h.parse(code)
	return err
}

func (h *MidiHandler) parse(code string) (gomidi.Message, error) {
	var data MidiActionData
	if err := json.Unmarshal([]byte(code), &data); err != nil {
		return nil, fmt.Errorf("invalid MIDI action data: %w", err)
	}

	if data.MsgType == "sysex" {
		return parseSysEx(data.SysEx)
	}
	if data.Channel < 1 || data.Channel > 16 {
		return nil, fmt.Errorf("channel %d out of range 1-16", data.Channel)
	}
	for _, v := range []int{data.Note, data.Velocity, data.Program} {
		if v < 0 || v > 127 {
			return nil, fmt.Errorf("data byte %d out of range 0-127", v)
		}
	}
	channel := uint8(data.Channel - 1)

	switch data.MsgType {
	case "note_on":
		return gomidi.NoteOn(channel, uint8(data.Note), uint8(data.Velocity)), nil
	case "note_off":
		return gomidi.NoteOff(channel, uint8(data.Note)), nil
	case "cc":
		return gomidi.ControlChange(channel, uint8(data.Note), uint8(data.Velocity)), nil
	case "pc":
		return gomidi.ProgramChange(channel, uint8(data.Program)), nil
	}
	return nil, fmt.Errorf("unknown message type: %s", data.MsgType)
}

// parseSysEx reads a hex string such as "F0 7E 7F 09 01 F7".
func parseSysEx(s string) (gomidi.Message, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("invalid sysex hex: %w", err)
	}
	if len(b) < 2 || b[0] != 0xF0 || b[len(b)-1] != 0xF7 {
		return nil, fmt.Errorf("sysex must start with F0 and end with F7")
	}
	for _, x := range b[1 : len(b)-1] {
		if x > 0x7F {
			return nil, fmt.Errorf("sysex data byte %02X out of range", x)
		}
	}
	return gomidi.Message(b), nil
}
