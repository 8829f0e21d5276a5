package sweeper

import (
	"os"
	"time"

	"code.cloudfoundry.org/clock"

	"delivery-auction/utils"
)

// SweepRunner is the part of the auction service the background sweeper drives
type SweepRunner interface {
	Sweep() (int, error)
}

// Sweeper periodically resolves expired auctions so they close even when
// nobody is polling the auction list. It implements ifrit.Runner, letting
// main supervise it alongside the HTTP server.
type Sweeper struct {
	service  SweepRunner
	clk      clock.Clock
	interval time.Duration
}

func New(service SweepRunner, clk clock.Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		service:  service,
		clk:      clk,
		interval: interval,
	}
}

func (s *Sweeper) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()
	close(ready)

	for {
		select {
		case <-ticker.C():
			resolved, err := s.service.Sweep()
			if err != nil {
				utils.Error("background sweep failed", map[string]any{"error": err.Error()})
				continue
			}
			if resolved > 0 {
				utils.Info("background sweep resolved auctions", map[string]any{"count": resolved})
			}
		case <-signals:
			return nil
		}
	}
}
