package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/model"
	"github.com/stepherg/rayshell/internal/theme"
)

var watchTraffic bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Load everything and follow the core's pushed events",
	RunE:  withSession(runWatch),
}

func init() {
	watchCmd.Flags().BoolVar(&watchTraffic, "traffic", false, "print traffic samples")
}

// printer is the watch command's theme root. It only reports flips.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	dark *bool
}

func (p *printer) SetDark(dark bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dark != nil && *p.dark == dark {
		return
	}
	p.dark = &dark
	name := "light"
	if dark {
		name = "dark"
	}
	fmt.Fprintf(p.w, "theme: %s\n", name)
}

func (p *printer) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(b)
}

func (p *printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func runWatch(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
	sh := s.shell
	out := &printer{w: cmd.OutOrStdout()}

	defer sh.Observe()()
	if err := sh.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("initial load incomplete")
	}
	out.Printf("%d profiles, %d subscriptions, %d routings, %d log lines\n",
		sh.Profiles.Len(), sh.Subscriptions.Len(), sh.Routings.Len(), sh.Logs.Len())
	printStatus(out, sh.Core.Status.Value())

	defer sh.Core.Status.Watch(func() { printStatus(out, sh.Core.Status.Value()) })()
	defer s.reg.Subscribe(events.TopicCoreLog, func(any) {
		if lines := sh.Logs.Lines(); len(lines) > 0 {
			out.Printf("log: %s\n", lines[len(lines)-1])
		}
	})()
	defer sh.Notifications.Watch(func() {
		n := sh.Notifications.Value()
		out.Printf("[%s] %s: %s\n", n.Type, n.Title, n.Message)
	})()
	defer sh.Update.Watch(func() {
		u := sh.Update.Value()
		out.Printf("update %s: %s %s/%s\n", u.CoreType, u.Status, model.FormatBytes(u.Downloaded), model.FormatBytes(u.Total))
	})()
	if watchTraffic {
		defer sh.Traffic.Watch(func() {
			t := sh.Traffic.Value()
			out.Printf("up %s down %s\n", model.FormatSpeed(t.Up), model.FormatSpeed(t.Down))
		})()
	}

	stopTheme, err := followTheme(s, out)
	if err != nil {
		return err
	}
	defer stopTheme()

	<-ctx.Done()
	return nil
}

// followTheme applies the configured theme now and again whenever the
// config or the system preference changes.
func followTheme(s *session, root theme.Root) (func(), error) {
	var pref theme.Preference = theme.Static(false)
	var closePref func()
	if s.cfg.ThemeFile != "" {
		fp, err := theme.NewFilePreference(s.cfg.ThemeFile, s.log.With().Str("component", "theme").Logger())
		if err != nil {
			return nil, err
		}
		pref = fp
		closePref = func() { _ = fp.Close() }
	}

	var (
		mu      sync.Mutex
		unwatch = func() {}
	)
	apply := func() {
		mode := theme.Mode(s.shell.Config.Theme())
		mu.Lock()
		defer mu.Unlock()
		unwatch()
		theme.Apply(root, pref, mode)
		unwatch = theme.Watch(root, pref, mode)
	}
	apply()
	stopConfig := s.shell.Config.Watch(apply)

	return func() {
		stopConfig()
		mu.Lock()
		unwatch()
		mu.Unlock()
		if closePref != nil {
			closePref()
		}
	}, nil
}
