package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stepherg/rayshell/internal/model"
	"github.com/stepherg/rayshell/internal/store"
)

// withSession connects before running fn and tears the session down after.
func withSession(fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		s, err := connect(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s, args)
	}
}

func table(w io.Writer, header string, rows func(tw io.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

// profiles

var (
	profileSub    string
	profileSearch string
	profileSort   string
	profileDesc   bool
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List and manage profiles",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		p := s.shell.Profiles
		dir := store.Asc
		if profileDesc {
			dir = store.Desc
		}
		p.Selection.SetFilter(store.FilterState{SubID: profileSub, Search: profileSearch, SortKey: profileSort, SortDir: dir})
		if err := s.shell.Config.Load(ctx); err != nil {
			return err
		}
		if err := p.Refresh(ctx); err != nil {
			return err
		}
		active := s.shell.Config.ActiveProfileID()
		table(cmd.OutOrStdout(), "\tID\tREMARKS\tTYPE\tADDRESS\tNETWORK", func(tw io.Writer) {
			for _, pr := range p.Visible() {
				mark := ""
				if pr.ID == active {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, pr.ID, pr.Remarks,
					model.ProtocolName(pr.ConfigType), model.FormatAddress(pr.Address, pr.Port), pr.Transport.Network)
			}
		})
		return nil
	}),
}

var profilesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import share links from a file, or stdin when omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		var (
			raw []byte
			err error
		)
		if len(args) == 0 || args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		n, err := s.shell.Profiles.Import(ctx, string(raw))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d profiles\n", n)
		return nil
	}),
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete id...",
	Short: "Delete profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		return s.shell.Profiles.Delete(ctx, args)
	}),
}

var profilesActivateCmd = &cobra.Command{
	Use:   "activate id",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		return s.shell.Profiles.SetActive(ctx, args[0])
	}),
}

var profilesExportCmd = &cobra.Command{
	Use:   "export id",
	Short: "Print a profile's share link",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		link, err := s.shell.Profiles.ExportShareLink(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	}),
}

var profilesTestCmd = &cobra.Command{
	Use:   "test [id...]",
	Short: "Measure latency of the given profiles, or all of them",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		p := s.shell.Profiles
		if err := p.Refresh(ctx); err != nil {
			return err
		}
		for _, id := range args {
			p.Selection.Toggle(id)
		}
		var err error
		if len(args) > 0 {
			err = p.TestSelected(ctx)
		} else {
			err = p.TestAll(ctx)
		}
		if err != nil {
			return err
		}
		table(cmd.OutOrStdout(), "REMARKS\tLATENCY\tSPEED", func(tw io.Writer) {
			for _, pr := range p.Visible() {
				res, ok := p.Results.Get(pr.ID)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", pr.Remarks, model.FormatLatency(res.Latency), model.FormatSpeed(res.Speed))
			}
		})
		return nil
	}),
}

// subscriptions

var subRemarks string

var subsCmd = &cobra.Command{
	Use:   "subs",
	Short: "List and manage subscriptions",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := s.shell.Subscriptions.Refresh(ctx); err != nil {
			return err
		}
		table(cmd.OutOrStdout(), "ID\tREMARKS\tURL\tENABLED\tUPDATED", func(tw io.Writer) {
			for _, sub := range s.shell.Subscriptions.Items() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", sub.ID, sub.Remarks, sub.URL, sub.Enabled, model.FormatDate(sub.UpdateTime))
			}
		})
		return nil
	}),
}

var subsAddCmd = &cobra.Command{
	Use:   "add url",
	Short: "Add a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		sub := model.NewSubscription()
		sub.URL = args[0]
		sub.Remarks = subRemarks
		return s.shell.Subscriptions.Create(ctx, sub)
	}),
}

var subsDeleteCmd = &cobra.Command{
	Use:   "delete id",
	Short: "Delete a subscription and its profiles",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		return s.shell.Subscriptions.Delete(ctx, args[0])
	}),
}

var subsSyncCmd = &cobra.Command{
	Use:   "sync [id...]",
	Short: "Sync the given subscriptions, or all enabled ones",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		counts := map[string]int{}
		if len(args) == 0 {
			all, err := s.shell.Subscriptions.SyncAll(ctx)
			if err != nil {
				return err
			}
			counts = all
		}
		for _, id := range args {
			n, err := s.shell.Subscriptions.Sync(ctx, id)
			if err != nil {
				return err
			}
			counts[id] = n
		}
		for id, n := range counts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d profiles\n", id, n)
		}
		return nil
	}),
}

// routings

var routingsCmd = &cobra.Command{
	Use:   "routings",
	Short: "List and manage routings",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := s.shell.Config.Load(ctx); err != nil {
			return err
		}
		if err := s.shell.Routings.Refresh(ctx); err != nil {
			return err
		}
		active := s.shell.Config.ActiveRoutingID()
		table(cmd.OutOrStdout(), "\tID\tREMARKS\tRULES\tLOCKED", func(tw io.Writer) {
			for _, r := range s.shell.Routings.Items() {
				mark := ""
				if r.ID == active {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", mark, r.ID, r.Remarks, len(r.Rules), r.Locked)
			}
		})
		return nil
	}),
}

var routingsActivateCmd = &cobra.Command{
	Use:   "activate id",
	Short: "Make a routing the active one",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		return s.shell.Routings.SetActive(ctx, args[0])
	}),
}

var routingsDeleteCmd = &cobra.Command{
	Use:   "delete id",
	Short: "Delete a routing",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		return s.shell.Routings.Delete(ctx, args[0])
	}),
}

// logs

var (
	logLimit  int
	logLevel  string
	logSearch string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the core log",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := s.shell.Logs.Load(ctx, logLimit); err != nil {
			return err
		}
		for _, line := range s.shell.Logs.Filtered(logLevel, logSearch) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	}),
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the core log",
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
		return s.shell.Logs.Clear(ctx)
	}),
}

// core

var coreCmd = &cobra.Command{
	Use:   "core",
	Short: "Show the core status",
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := s.shell.Core.Load(ctx); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), s.shell.Core.Status.Value())
		return nil
	}),
}

func coreAction(name string, run func(*store.CoreStore) func(context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: strings.ToUpper(name[:1]) + name[1:] + " the core",
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			if err := s.shell.Core.Load(ctx); err != nil {
				return err
			}
			if err := run(s.shell.Core)(ctx); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), s.shell.Core.Status.Value())
			return nil
		}),
	}
}

var coreModeCmd = &cobra.Command{
	Use:       "mode manual|system|tun|pac",
	Short:     "Set the proxy mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"manual", "system", "tun", "pac"},
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
		mode, ok := model.ParseProxyMode(args[0])
		if !ok {
			return fmt.Errorf("unknown proxy mode %q", args[0])
		}
		return s.shell.Config.SetProxyMode(ctx, mode)
	}),
}

func printStatus(w io.Writer, st model.CoreStatus) {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	fmt.Fprintf(w, "%s %s: %s", st.CoreType, st.Version, state)
	if st.Running {
		fmt.Fprintf(w, " (pid %d, %s)", st.PID, st.Profile)
		if st.StartTime != nil {
			fmt.Fprintf(w, " since %s", model.FormatDate(*st.StartTime))
		}
	}
	fmt.Fprintln(w)
}

func init() {
	profilesCmd.Flags().StringVar(&profileSub, "sub", store.AllGroups, "subscription id to list, or all")
	profilesCmd.Flags().StringVar(&profileSearch, "search", "", "match remarks or address")
	profilesCmd.Flags().StringVar(&profileSort, "sort", store.SortRemarks, "sort key: remarks, address, port, configType, network")
	profilesCmd.Flags().BoolVar(&profileDesc, "desc", false, "sort descending")
	profilesCmd.AddCommand(profilesImportCmd, profilesDeleteCmd, profilesActivateCmd, profilesExportCmd, profilesTestCmd)

	subsAddCmd.Flags().StringVar(&subRemarks, "remarks", "", "display name")
	subsCmd.AddCommand(subsAddCmd, subsDeleteCmd, subsSyncCmd)

	routingsCmd.AddCommand(routingsActivateCmd, routingsDeleteCmd)

	logsCmd.Flags().IntVar(&logLimit, "limit", 0, "lines to fetch (0 uses RAYSHELL_LOG_LIMIT)")
	logsCmd.Flags().StringVar(&logLevel, "level", store.LevelAll, "all, debug, info, warning or error")
	logsCmd.Flags().StringVar(&logSearch, "search", "", "case-insensitive substring")
	logsCmd.AddCommand(logsClearCmd)

	coreCmd.AddCommand(
		coreAction("start", func(c *store.CoreStore) func(context.Context) error { return c.Start }),
		coreAction("stop", func(c *store.CoreStore) func(context.Context) error { return c.Stop }),
		coreAction("restart", func(c *store.CoreStore) func(context.Context) error { return c.Restart }),
		coreAction("toggle", func(c *store.CoreStore) func(context.Context) error { return c.Toggle }),
		coreModeCmd,
	)
}
