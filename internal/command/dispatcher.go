// Package command implements the Command Dispatcher from spec §4.5:
// fire-and-forget shell subprocess spawning for Command(s) actions,
// rate-limited so a misconfigured binding cannot fork-bomb the host.
package command

import (
	"log/slog"
	"os/exec"
	"syscall"

	"keyremapd/internal/security"
)

// Dispatcher spawns detached shell commands without blocking its
// caller. The daemon shares one Dispatcher, and so one rate limit,
// across all Device Engines; the limiter is safe for concurrent use.
type Dispatcher struct {
	limiter   *security.RateLimiter
	validator *security.InputValidator
	logger    *slog.Logger
}

// New builds a dispatcher. rate and burst bound how many commands per
// second the engine will fork; beyond that, presses are dropped and
// logged rather than queued, matching the hot path's no-blocking rule.
func New(logger *slog.Logger, rate float64, burst int) *Dispatcher {
	return &Dispatcher{
		limiter:   security.NewRateLimiter(rate, burst),
		validator: security.DefaultInputValidator(),
		logger:    logger,
	}
}

// Dispatch spawns `/bin/sh -c s` detached. It returns immediately; the
// subprocess's own lifetime is reaped on a background goroutine, never
// on the caller's. Per spec §4.5, release events must never reach this
// method — callers dispatch only on press.
func (d *Dispatcher) Dispatch(s string) {
	if err := d.validator.Validate(s); err != nil {
		d.logger.Warn("command binding failed validation, dropping",
			"command", security.SanitizeLogOutput(s), "error", err)
		return
	}
	if !d.limiter.Allow() {
		d.logger.Warn("command dispatch rate limited, dropping", "command", security.SanitizeLogOutput(s))
		return
	}
	go d.spawn(s)
}

func (d *Dispatcher) spawn(s string) {
	cmd := exec.Command("/bin/sh", "-c", s)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		d.logger.Warn("command spawn failed", "command", security.SanitizeLogOutput(s), "error", err)
		return
	}
	// Reap asynchronously so the subprocess never becomes a zombie; its
	// exit status is not meaningful to the event stream.
	if err := cmd.Wait(); err != nil {
		d.logger.Debug("command exited non-zero", "command", security.SanitizeLogOutput(s), "error", err)
	}
}
