package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/provider"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
)

type runOptions struct {
	Require []string
	Unique  []string
	Timeout time.Duration
	Message string
	Replies int
}

func (o *runOptions) workforceOptions() (workforce.Options, error) {
	options := workforce.Options{Timeout: o.Timeout}

	if len(o.Require) > 0 {
		requirement, err := provider.ParseAttributes(o.Require)
		if err != nil {
			return options, err
		}
		options.ProviderFilter = workforce.RequireAttributes(requirement)
	}

	if len(o.Unique) > 0 {
		options.UniquenessFilter = workforce.UniqueBy(o.Unique...)
	}

	return options, nil
}

// Payloads are sent verbatim if they are valid JSON, otherwise as a string.
func parsePayload(message string) json.RawMessage {
	if json.Valid([]byte(message)) {
		return json.RawMessage(message)
	}
	data, _ := json.Marshal(message)
	return data
}

// runWorkforce populates a workforce from the available providers of the
// registry and prints worker activity until all workers are dead, enough
// replies have arrived, the workforce is killed or ctx is cancelled.
func runWorkforce(ctx context.Context, ch channel.Channel, registry *provider.Registry, opts runOptions, out io.Writer) error {
	options, err := opts.workforceOptions()
	if err != nil {
		return err
	}

	candidates := []*workforce.WorkerProvider{}
	for _, p := range registry.Available() {
		if options.ProviderFilter != nil {
			ok, err := options.ProviderFilter(p.Attributes())
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return utils.ErrNoProviders
	}

	var (
		wf      *workforce.Workforce
		mu      sync.Mutex
		live    int
		replies int
	)

	options.WorkerHandler = func(w *workforce.Worker) {
		mu.Lock()
		live++
		mu.Unlock()

		fmt.Fprintf(out, "%s: added\n", w)

		w.OnDead(func(e workforce.DeadEvent) {
			reason := e.Reason
			if reason == "" {
				reason = e.Origin.String()
			}
			fmt.Fprintf(out, "%s: dead (%s)\n", w, reason)

			mu.Lock()
			live--
			idle := live == 0
			mu.Unlock()

			if idle {
				wf.Kill(workforce.KillReasonDead)
			}
		})
	}

	wf, err = workforce.New(ch, registry, options)
	if err != nil {
		return err
	}

	wf.On(func(e workforce.Event) {
		switch e := e.(type) {
		case workforce.WorkerMessageEvent:
			fmt.Fprintf(out, "%s: %s\n", e.Worker, e.Payload)

			mu.Lock()
			replies++
			enough := opts.Replies > 0 && replies >= opts.Replies
			mu.Unlock()

			if enough {
				wf.Kill(workforce.KillReasonDead)
			}

		case workforce.WorkforceDeadEvent:
			fmt.Fprintf(out, "workforce dead (%s)\n", e.Reason)
		}
	})

	wf.Start()

	if err := wf.Populate(candidates...); err != nil {
		wf.Kill(workforce.KillReasonDead)
		return err
	}

	if opts.Message != "" {
		wf.BroadcastRaw(parsePayload(opts.Message))
	}

	if err := wf.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Populate a workforce and print what its workers say",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		listCtx, cancel := DefaultDeadlineContext()
		infos, err := FetchProviders(listCtx, &configData)
		cancel()
		if err != nil {
			log.Fatal(err)
		}

		registry, err := provider.NewRegistryFromInfo(infos)
		if err != nil {
			log.Fatal(err)
		}

		ch, err := Connect(ctx, &configData)
		if err != nil {
			log.Fatal(err)
		}
		defer ch.Close()

		if err := runWorkforce(ctx, ch, registry, runOpts, os.Stdout); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	runCmd.Flags().StringSliceVarP(&runOpts.Require, "require", "r", nil, "Required provider attribute, key=value (repeatable)")
	runCmd.Flags().StringSliceVarP(&runOpts.Unique, "unique", "u", nil, "Admit one provider per value of this attribute (repeatable)")
	runCmd.Flags().DurationVar(&runOpts.Timeout, "timeout", 0, "Kill the workforce after this duration")
	runCmd.Flags().StringVarP(&runOpts.Message, "message", "m", "", "Payload broadcast to all workers, JSON or plain text")
	runCmd.Flags().IntVar(&runOpts.Replies, "replies", 0, "Kill the workforce after this many worker messages")
	rootCmd.AddCommand(runCmd)
}
