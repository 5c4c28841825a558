// main.go - Intuition GPU entry point

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147mIntuition GPU\033[0m - asynchronous GPU command core for the Intuition Engine")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

// windowed is implemented by outputs that own a host window.
type windowed interface {
	Done() <-chan struct{}
	SetScreenshotHandler(fn func())
	SetCloseHandler(fn func())
}

func main() {
	os.Exit(run())
}

func run() int {
	cl, err := ParseCommandLine(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if cl.Features {
		printFeatures()
		return 0
	}
	if cl.DumpConfig {
		if err := WriteSettings(os.Stdout, cl.Settings); err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		return 0
	}

	boilerPlate()
	SetLogger(NewConsoleLogger(os.Stderr, int(os.Stderr.Fd()), ParseLogLevel(cl.Settings.LogLevel)))

	store := NewSettingsStore(cl.Settings)
	core := NewVideoCore(store, NewGuestMemory(DEFAULT_GUEST_MEMORY_SIZE))
	if status, err := core.Init(); status != ResultStatusSuccess {
		fmt.Printf("Failed to initialize video core (%s): %v\n", status, err)
		return 1
	}
	defer core.Shutdown()

	backend := VIDEO_BACKEND_EBITEN
	if cl.Headless {
		backend = VIDEO_BACKEND_HEADLESS
	}
	output, err := NewVideoOutput(backend)
	if err != nil {
		fmt.Printf("Failed to initialize video: %v\n", err)
		return 1
	}
	layout := DefaultLayout(int(core.ResolutionScaleFactor()))
	if err := output.SetDisplayConfig(DisplayConfig{
		Width:       layout.Width,
		Height:      layout.Height,
		Scale:       1,
		RefreshRate: 60,
		VSync:       true,
		Fullscreen:  store.Get().Fullscreen,
	}); err != nil {
		fmt.Printf("Failed to configure video: %v\n", err)
		return 1
	}

	presenter := NewFramePresenter(output, core.Mailbox(), store)
	runtimeStatus.setPipeline(core, presenter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if w, ok := output.(windowed); ok {
		w.SetCloseHandler(cancel)
		w.SetScreenshotHandler(func() {
			core.RequestScreenshot(DefaultLayout(int(core.ResolutionScaleFactor())), saveInteractiveScreenshot)
		})
	}
	if err := output.Start(); err != nil {
		fmt.Printf("Failed to start video: %v\n", err)
		return 1
	}
	defer output.Close()

	host := NewScriptHost(core, cl.Frames)
	presenterDone := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(presenterDone)
		return presenter.Run(gctx)
	})
	g.Go(func() error {
		err := host.RunFile(gctx, cl.Script)
		core.GPU().Synchronize()

		// Take over presentation for one last pass so the final frame is shown
		presenter.Stop()
		<-presenterDone
		if perr := presenter.PresentOnce(store.Get().PresentTimeout()); perr != nil && err == nil {
			err = perr
		}
		if cl.Screenshot != "" {
			if img, ok := presenter.LastImage(); ok {
				if serr := SaveScreenshot(cl.Screenshot, img); serr != nil && err == nil {
					err = serr
				}
			}
		}
		if cl.Frames > 0 || cl.Headless {
			cancel()
		}
		return err
	})
	if w, ok := output.(windowed); ok {
		g.Go(func() error {
			select {
			case <-w.Done():
				cancel()
			case <-gctx.Done():
			}
			return nil
		})
	}

	err = g.Wait()
	if serr := core.Shutdown(); serr != nil && err == nil {
		err = serr
	}
	printSummary(core, presenter, host)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

func saveInteractiveScreenshot(img *image.RGBA) {
	name := fmt.Sprintf("iegpu-%s.png", time.Now().Format("20060102-150405"))
	if err := SaveScreenshot(name, img); err != nil {
		Logger().Warn("screenshot not saved", "err", err)
	} else {
		fmt.Printf("Screenshot saved: %s\n", name)
	}
	if err := CopyScreenshotToClipboard(img); err != nil {
		Logger().Warn("screenshot not copied", "err", err)
	}
}

func printSummary(core *VideoCore, presenter *FramePresenter, host *ScriptHost) {
	perf := core.Renderer().Perf()
	ps := presenter.Stats()
	fmt.Printf("Frames: %d submitted, %d rendered, %d presented, %d repeated, %d dropped\n",
		host.Frames(), perf.Frames, ps.Presented, ps.Repeated, core.Mailbox().Dropped())
	if st, ok := core.ThreadStats(); ok {
		fmt.Printf("GPU thread: %d commands, %d inline, %d blocking waits, fence %d/%d\n",
			st.Executed, st.Inline, st.Blocked, st.SignaledFence, st.LastFence)
	}
}
