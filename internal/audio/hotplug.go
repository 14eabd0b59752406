package audio

import (
	"context"
	"log/slog"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"juno/internal/logging"
)

// soundSettleDelay gives the audio server a moment to register a card after
// the kernel announces it; the inventory lags the uevent slightly.
const soundSettleDelay = 2 * time.Second

// WaitForSoundDevice blocks until a sound-subsystem hotplug event arrives or
// the timeout elapses, reporting whether an event was seen. A netlink
// connection failure is non-fatal: the wait is an aid, not a requirement.
func WaitForSoundDevice(ctx context.Context, logger *slog.Logger, timeout time.Duration) bool {
	if logger == nil {
		logger = logging.NewNop()
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logger.Warn("hotplug wait unavailable; cannot open netlink socket", logging.Error(err))
		return false
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	action := "add|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})

	monitorQuit := conn.Monitor(queue, errs, rules)
	defer close(monitorQuit)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			logger.Warn("no sound device appeared within the wait window",
				logging.Duration("timeout", timeout))
			return false
		case event := <-queue:
			logger.Info("sound device event observed",
				logging.String("action", string(event.Action)),
				logging.String("kobj", event.KObj),
			)
			settle := time.NewTimer(soundSettleDelay)
			select {
			case <-ctx.Done():
				settle.Stop()
				return false
			case <-settle.C:
			}
			return true
		case err := <-errs:
			logger.Debug("hotplug monitor error", logging.Error(err))
		}
	}
}
