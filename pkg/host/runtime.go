package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/srand/jolt/workforce/pkg/utils"
)

// A Runtime is the code a worker runs on the host. It receives the payloads
// sent to the worker and replies through the worker. The worker dies when
// the runtime returns; ctx is cancelled when the workforce gives up on it.
type Runtime func(ctx context.Context, w *Worker) error

// EchoRuntime replies every payload back to the workforce.
func EchoRuntime(ctx context.Context, w *Worker) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-w.Messages():
			if !ok {
				return nil
			}
			w.SendRaw(payload)
		}
	}
}

// PingPongRuntime answers "ping" with "pong" and exits on "exit".
// Anything else is ignored.
func PingPongRuntime(ctx context.Context, w *Worker) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-w.Messages():
			if !ok {
				return nil
			}

			var text string
			if err := json.Unmarshal(payload, &text); err != nil {
				continue
			}

			switch text {
			case "ping":
				if err := w.Send("pong"); err != nil {
					return err
				}
			case "exit":
				return nil
			}
		}
	}
}

var runtimes = map[string]Runtime{
	"echo":     EchoRuntime,
	"pingpong": PingPongRuntime,
}

// LookupRuntime returns a built-in runtime by name. The empty name selects
// the echo runtime.
func LookupRuntime(name string) (Runtime, error) {
	if name == "" {
		name = "echo"
	}
	if rt, ok := runtimes[name]; ok {
		return rt, nil
	}
	return nil, fmt.Errorf("%w: runtime %q", utils.ErrNotFound, name)
}

func RuntimeNames() []string {
	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
