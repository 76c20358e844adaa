package session

import (
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// openPort opens p, giving up after the session open timeout. A port whose
// open returns after the timeout is closed again.
func (s *Session) openPort(p drivers.Port) error {
	if p.IsOpen() {
		return nil
	}
	if s.openTimeout <= 0 {
		return p.Open()
	}

	ch := make(chan error, 1)
	go func() { ch <- p.Open() }()

	timer := time.NewTimer(s.openTimeout)
	defer timer.Stop()
	select {
	case err := <-ch:
		return err
	case <-timer.C:
		go func() {
			if err := <-ch; err == nil {
				s.log.Warn("closing device opened after timeout", zap.String("device", p.String()))
				_ = p.Close()
			}
		}()
		return fmt.Errorf("open timed out after %s", s.openTimeout)
	}
}
