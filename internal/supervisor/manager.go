package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/exec"
	"time"

	"github.com/turtacn/netclock/internal/timesync"
	"github.com/turtacn/netclock/pkg/consts"
	"github.com/turtacn/netclock/pkg/logger"
	"github.com/turtacn/netclock/pkg/protocol"
)

// DefaultHookTimeout bounds a hook without an explicit timeout.
const DefaultHookTimeout = 30 * time.Second

// HookRunner executes the on_ready hooks once bring-up has completed.
type HookRunner struct {
	hooks  []protocol.Hook
	stdout io.Writer
	stderr io.Writer
}

// New creates a HookRunner whose hooks inherit the process stdout and stderr.
func New(hooks []protocol.Hook) *HookRunner {
	return &HookRunner{hooks: hooks, stdout: os.Stdout, stderr: os.Stderr}
}

// ReadyEnv is the environment added to every hook.
func ReadyEnv(out timesync.Outcome, addr netip.Addr) []string {
	env := []string{fmt.Sprintf("%s=%s", consts.EnvSyncState, out.State)}
	if addr.IsValid() {
		env = append(env, fmt.Sprintf("%s=%s", consts.EnvAddress, addr))
	}
	if !out.Time.IsZero() {
		env = append(env, fmt.Sprintf("%s=%s", consts.EnvSyncTime, out.Time.Format(timesync.TimestampLayout)))
	}
	return env
}

// RunReady runs every hook in order. A failing hook is logged and does not
// stop the ones after it; all failures are returned joined.
func (r *HookRunner) RunReady(ctx context.Context, out timesync.Outcome, addr netip.Addr) error {
	env := append(os.Environ(), ReadyEnv(out, addr)...)

	var errs []error
	for _, h := range r.hooks {
		if err := r.run(ctx, h, env); err != nil {
			logger.Log.Error("Ready hook failed", "hook", h.Name, "err", err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *HookRunner) run(ctx context.Context, h protocol.Hook, env []string) error {
	if len(h.Command) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, protocol.ParseDuration(h.Timeout, DefaultHookTimeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Command[0], h.Command[1:]...)
	cmd.Env = env
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	logger.Log.Info("Running ready hook", "hook", h.Name, "cmd", h.Command)
	return cmd.Run()
}

// Personal.AI order the ending
