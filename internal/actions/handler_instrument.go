package actions

import (
	"context"
	"encoding/json"
	"fmt"
)

// InstrumentHandler selects an instrument on a channel from its saved token
type InstrumentHandler struct {
	out      Output
	resolver InstrumentResolver
}

// InstrumentActionData structure for JSON storage in Code field
type InstrumentActionData struct {
	Channel int    `json:"channel"` // 1-16
	Token   string `json:"token"`   // instrument token, the default instrument when it does not resolve
}

func NewInstrumentHandler(out Output, resolver InstrumentResolver) *InstrumentHandler {
	return &InstrumentHandler{out: out, resolver: resolver}
}

func (h *InstrumentHandler) Execute(_ context.Context, code string) (string, error) {
	data, err := h.parse(code)
	if err != nil {
		return "", err
	}
	ins := h.resolver.ResolveInstrument(data.Token)
	if ins == nil {
		return "", fmt.Errorf("no instrument for token %q", data.Token)
	}
	if err := h.out.SendInstrument(uint8(data.Channel-1), ins); err != nil {
		return "", fmt.Errorf("select %s: %w", ins.FullName(), err)
	}
	return fmt.Sprintf("Selected %s on channel %d", ins.FullName(), data.Channel), nil
}

func (h *InstrumentHandler) Validate(code string) error {
	_, err := h.parse(code)
	return err
}

func (h *InstrumentHandler) parse(code string) (InstrumentActionData, error) {
	var data InstrumentActionData
	if err := json.Unmarshal([]byte(code), &data); err != nil {
		return data, fmt.Errorf("invalid instrument action data: %w", err)
	}
	if data.Channel < 1 || data.Channel > 16 {
		return data, fmt.Errorf("channel %d out of range 1-16", data.Channel)
	}
	return data, nil
}

// PanicHandler silences every channel of the output
type PanicHandler struct {
	out Output
}

func (h *PanicHandler) Execute(context.Context, string) (string, error) {
	if err := h.out.Panic(); err != nil {
		return "", err
	}
	return "Panic sent", nil
}

func (h *PanicHandler) Validate(string) error { return nil }
