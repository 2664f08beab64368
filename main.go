package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"runtime"

	"droidview/mcp"
	"droidview/pkg/config"
	"droidview/pkg/logging"

	"github.com/energye/systray"
	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed build/icon.svg
var iconData []byte

//go:embed all:frontend/dist
var assets embed.FS

type cliFlags struct {
	theme              string
	hideFrame          bool
	alwaysOnTop        bool
	debugDisableScrcpy bool
	resetConfig        bool
	logLevel           string
	logFile            bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	root := &cobra.Command{
		Use:           "droidview",
		Short:         "Mirror and manage Android devices with scrcpy and adb",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(f)
			defer logging.Close()
			return runWindow(appOptions(cmd, f), f)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&f.theme, "theme", "t", config.DefaultTheme, "color theme for this run (default, dark, light)")
	flags.BoolVar(&f.debugDisableScrcpy, "debug-disable-scrcpy", false, "never launch scrcpy; only report status")
	flags.BoolVarP(&f.resetConfig, "reset-config", "r", false, "restore the default configuration before starting")
	flags.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&f.logFile, "log-file", false, "also write a rotating log file in the config directory")

	root.Flags().BoolVarP(&f.hideFrame, "hide-wm-frame", "W", false, "hide the window manager frame")
	root.Flags().BoolVarP(&f.alwaysOnTop, "always-on-top", "A", true, "keep the window above others")

	root.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol on stdio instead of opening a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(f)
			defer logging.Close()
			return runMCP(appOptions(cmd, f))
		},
	})

	return root
}

// appOptions applies --theme only when given, so the saved theme wins otherwise
func appOptions(cmd *cobra.Command, f cliFlags) Options {
	opts := Options{
		ResetConfig:        f.resetConfig,
		DebugDisableScrcpy: f.debugDisableScrcpy,
	}
	if cmd.Flags().Changed("theme") {
		opts.Theme = f.theme
	}
	return opts
}

func setupLogging(f cliFlags) {
	cfg := logging.DefaultConfig()
	if f.logFile {
		if dir, err := config.Dir(); err == nil {
			cfg = logging.FileConfig(dir)
		}
	}
	cfg.Level = logging.ParseLevel(f.logLevel)
	if err := logging.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "log file disabled: %v\n", err)
		cfg.File = false
		_ = logging.Init(cfg)
	}
}

func runMCP(opts Options) error {
	app := NewApp(opts)
	if err := app.startMCP(); err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	return mcp.NewMCPServer(NewMCPBridge(app)).Start()
}

func runWindow(opts Options, f cliFlags) error {
	app := NewApp(opts)
	var shouldQuit bool

	var applicationMenu *menu.Menu
	if runtime.GOOS == "darwin" {
		applicationMenu = menu.NewMenu()
		applicationMenu.Append(menu.AppMenu())
		applicationMenu.Append(menu.WindowMenu())
	}

	return wails.Run(&options.App{
		Title:       appName,
		Width:       800,
		Height:      600,
		MinWidth:    500,
		MinHeight:   400,
		Frameless:   f.hideFrame,
		AlwaysOnTop: f.alwaysOnTop,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Menu:             applicationMenu,
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup: func(ctx context.Context) {
			app.startup(ctx)
			if runtime.GOOS == "darwin" {
				start, _ := systray.RunWithExternalLoop(func() {
					systray.SetIcon(iconData)
					systray.SetTooltip(appName)

					mShow := systray.AddMenuItem("Open "+appName, "Show the main window")
					mShow.Click(func() {
						wailsRuntime.WindowShow(ctx)
					})

					mMirror := systray.AddMenuItem("Start mirroring", "Mirror the selected device")
					mMirror.Click(func() {
						_ = app.StartScrcpy()
					})

					mQuit := systray.AddMenuItem("Quit", "Quit "+appName)
					mQuit.Click(func() {
						shouldQuit = true
						systray.Quit()
						wailsRuntime.Quit(ctx)
					})
				}, func() {})
				start()
			}
		},
		OnShutdown:       app.Shutdown,
		WindowStartState: options.Normal,
		OnBeforeClose: func(ctx context.Context) (prevent bool) {
			if runtime.GOOS == "darwin" && !shouldQuit {
				wailsRuntime.WindowHide(ctx)
				return true
			}
			return false
		},
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     true,
			DisableWebViewDrop: true,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				FullSizeContent:            true,
				HideToolbarSeparator:       true,
			},
			Appearance: mac.NSAppearanceNameDarkAqua,
			About: &mac.AboutInfo{
				Title:   appName + " " + version,
				Message: "Mirror and manage Android devices\n" + projectURL,
				Icon:    iconData,
			},
		},
		Bind: []interface{}{
			app,
		},
	})
}
