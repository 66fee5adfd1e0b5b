package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wavepulse/internal/app"
	"wavepulse/internal/chat"
	"wavepulse/internal/fileedit"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
	"wavepulse/internal/router"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API and the app channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, true)
			if err != nil {
				return err
			}
			defer logging.Close()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := app.SignalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, cfg, configPath(flags))
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "WavePulse listening on %s\n", cfg.Server.Addr)
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		channel string
		raw     bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, true)
			if err != nil {
				return err
			}
			defer logging.Close()

			ctx, stop := app.SignalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, cfg, "")
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer a.Close()

			out := cmd.ErrOrStderr()
			q := router.Query{Message: strings.Join(args, " "), ChannelID: channel}
			var last string
			reply := a.Chat().Handle(ctx, q, func(e chat.Event) {
				if e.Type != chat.EventStep {
					return
				}
				if line := progressLine(e.Data.ResearchSteps); line != "" && line != last {
					fmt.Fprint(out, line)
					last = line
				}
			})

			fmt.Fprintln(out, renderSteps(reply.ResearchSteps))
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(reply.Message))
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "app channel id for UI-state questions")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the answer as plain markdown")
	return cmd
}

func newRouteCmd(flags *globalFlags) *cobra.Command {
	var heuristic bool
	cmd := &cobra.Command{
		Use:   "route <message>",
		Short: "Print the category a message is routed to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if heuristic {
				cfg, err := loadConfig(flags, false)
				if err != nil {
					return err
				}
				r := router.NewRouter(nil, cfg.Model, cfg.Router)
				printCategory(cmd, r.Heuristic(message))
				return nil
			}

			cfg, err := loadConfig(flags, true)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, "")
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer a.Close()
			printCategory(cmd, a.Router().Route(cmd.Context(), message, cfg.Model.Deterministic))
			return nil
		},
	}
	cmd.Flags().BoolVar(&heuristic, "heuristic", false, "use the keyword heuristic only, without the model")
	return cmd
}

func printCategory(cmd *cobra.Command, c router.Category) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c, c.GetDescription())
}

var errEditFailed = errors.New("edit failed")

func newEditCmd(flags *globalFlags) *cobra.Command {
	var (
		search  string
		replace string
		workDir string
	)
	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Replace text in a file and verify the change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, false)
			if err != nil {
				return err
			}
			defer logging.Close()

			exec, closeExec, err := remote.New(cfg.Executor)
			if err != nil {
				return err
			}
			defer closeExec()
			if workDir == "" {
				workDir = cfg.Executor.WorkDir
			}

			verifier := fileedit.NewVerifier(remote.NewFileOps(exec))
			res := verifier.Edit(cmd.Context(), args[0], search, replace, workDir)
			if !res.Success {
				fmt.Fprintln(cmd.ErrOrStderr(), failStyle.Render(res.Message))
				if res.Output != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), res.Output)
				}
				return errEditFailed
			}
			fmt.Fprintln(cmd.OutOrStdout(), doneStyle.Render(res.Message))
			if res.Diff != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Diff)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "text to replace")
	cmd.Flags().StringVar(&replace, "replace", "", "replacement text")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "directory relative paths resolve against")
	_ = cmd.MarkFlagRequired("search")
	return cmd
}
