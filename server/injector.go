package server

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/kjk/ringlog/device"
	"github.com/kjk/ringlog/log"
)

const (
	DefaultInterval = 10 * time.Second

	// RFC 2822 style, same as strftime "%a, %d %b %Y %T %z"
	timestampFormat = "Mon, 02 Jan 2006 15:04:05 -0700"
)

// TimestampRecord returns the record appended by the Injector for time t
func TimestampRecord(t time.Time) []byte {
	var d []byte
	d = append(d, "timestamp:"...)
	d = t.UTC().AppendFormat(d, timestampFormat)
	return append(d, '\n')
}

// Injector periodically appends a timestamp record to a device.
// Ticks are anchored at start, missed ticks are dropped.
type Injector struct {
	Device   *device.Device
	Interval time.Duration
	// real clock if nil
	Clock clock.Clock
}

// Run appends a record every Interval until ctx is cancelled.
// The first record is appended one Interval after Run starts.
func (inj *Injector) Run(ctx context.Context) error {
	interval := inj.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clk := inj.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()
	log.Verbosef("injector: appending timestamp every %s\n", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C():
			err := inj.Device.AppendRecord(ctx, TimestampRecord(t))
			if errors.Is(err, device.ErrInterrupted) {
				return nil
			}
			// store was updated, only the mirror is behind
			log.IfErrf(err)
		}
	}
}
