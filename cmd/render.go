package cmd

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/zeu5/gridverse-planning/belief"
	"github.com/zeu5/gridverse-planning/config"
	"github.com/zeu5/gridverse-planning/core"
	"github.com/zeu5/gridverse-planning/envs/gridworld"
	"github.com/zeu5/gridverse-planning/planners"
)

func RenderCommand() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "render <domain.yaml> random | render <domain.yaml> mdp|pomdp <conf.yaml> [key=value...]",
		Short: "Render a single episode step by step",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := gridworld.LoadConfig(args[0])
			if err != nil {
				return err
			}
			env, err := gridworld.NewEnv(domain, flags.Seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colors := isTerminal(os.Stdout)

			var planner core.Planner[state, action]
			var b core.Belief[state, action, obs]
			discount := 1.0
			switch mode := args[1]; mode {
			case "random":
				planner = planners.NewRandom[state](env.Actions(), rand.New(rand.NewSource(flags.Seed+1)))
			case "mdp", "pomdp":
				if len(args) < 3 {
					return fmt.Errorf("%s requires a planner configuration file", mode)
				}
				conf, err := config.LoadPlannerConfig(args[2], args[3:])
				if err != nil {
					return err
				}
				discount = conf.DiscountFactor
				planner, err = planners.NewUCT[state, action, obs](env, env.Actions(), conf.UCTConfig, rand.New(rand.NewSource(flags.Seed+1)))
				if err != nil {
					return err
				}
				if mode == "pomdp" {
					opts := []belief.Option{
						belief.WithMaxAttempts(conf.MaxAttempts),
						belief.WithWorkers(conf.BeliefWorkers),
					}
					if colors {
						opts = append(opts, belief.WithObserver(belief.NewProgressObserver(os.Stderr)))
					}
					b, err = belief.NewRejectionSampler[state, action, obs](env, conf.NumParticles, rand.New(rand.NewSource(flags.Seed+2)), opts...)
					if err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("unknown mode %q, expected random, mdp or pomdp", mode)
			}

			ctx, done := interruptContext()
			defer done()

			renderer := gridworld.NewRenderer(out, env.Grid(), colors)
			ret := 0.0
			runner := core.NewEpisodeRunner[state, action, obs](logger)
			runner.AddHook(func(_ *core.EpisodeContext, r *core.Record) {
				ret += r.Reward * math.Pow(discount, float64(r.Timestep))
				status := fmt.Sprintf("t=%d action=%v reward=%g return=%.3f terminal=%t",
					r.Timestep, r.Action, r.Reward, ret, r.Terminal)
				if err := renderer.Step(env.State(), env.Observation(), status); err != nil {
					logger.Sugar().Warnf("rendering: %s", err)
				}
				time.Sleep(delay)
			})

			_, err = runner.Run(ctx, env, planner, b)
			return err
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "Pause between rendered steps")

	return cmd
}
