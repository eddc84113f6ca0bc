package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/settings"
	"github.com/janekbaraniewski/calgrid/internal/tui"
)

func runDashboard(cfg config.Config, flags sourceFlags) error {
	if err := tui.LoadThemes(config.ConfigDir()); err != nil {
		log.Printf("calgrid level=warn event=load_themes err=%v", err)
	}
	tui.SetThemeByName(cfg.Theme)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, closeSource, err := openSource(ctx, cfg, flags)
	if err != nil {
		return err
	}
	defer closeSource()

	prefs, err := settings.Load()
	if err != nil {
		log.Printf("calgrid level=warn event=load_settings err=%v", err)
	}
	if flags.rows > 0 {
		prefs.Rows = flags.rows
	}

	cal := calendar.NewModel(nil)
	if flags.demo {
		if err := cal.AddDemoOverlay(); err != nil {
			log.Printf("calgrid level=warn event=demo_overlay err=%v", err)
		}
	}

	model := tui.NewModel(tui.Options{
		Source:       src,
		Grid:         cfg.Grid,
		Calendar:     cal,
		Settings:     prefs,
		SettingsPath: settings.Path(),
		PersistTheme: true,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		err := settings.Watch(ctx, settings.Path(), func(s settings.Settings, err error) {
			program.Send(tui.SettingsChangedMsg{Settings: s, Err: err})
		})
		if err != nil {
			log.Printf("calgrid level=warn event=watch_settings err=%v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
			program.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := program.Run(); err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("calgrid level=error event=tui err=%v", err)
		return err
	}
	return nil
}
