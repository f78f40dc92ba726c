package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/enginekit/config"
	"github.com/mogaika/enginekit/status"
	"github.com/mogaika/enginekit/utils"
	"github.com/mogaika/enginekit/vr"
	"github.com/mogaika/enginekit/vr/simulator"
	"github.com/mogaika/enginekit/vr/wsbridge"
	"github.com/mogaika/enginekit/web"
)

// headCamera keeps the latest head transform of the display it is bound to.
type headCamera struct {
	view        mgl32.Mat4
	position    mgl32.Vec3
	orientation mgl32.Quat
	updates     int
}

func (c *headCamera) UpdatePose(d *vr.Display) {
	c.view = d.View()
	c.position = d.Frame().Position
	c.orientation = d.Frame().Orientation
	c.updates++
}

// frameLoop polls the manager at the configured rate and keeps the camera
// bound to the current primary display.
func frameLoop(ctx context.Context, m *vr.Manager, interval time.Duration) {
	cam := &headCamera{view: mgl32.Ident4(), orientation: mgl32.QuatIdent()}
	var bound *vr.Display

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	report := time.NewTicker(10 * time.Second)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-report.C:
			if bound != nil {
				angles := utils.RadiansToDegreeV3(utils.QuatToEuler(cam.orientation))
				log.Printf("[main] Display %q at %v facing %v after %d frames", bound.ID(), cam.position, angles, cam.updates)
			}
		case <-ticker.C:
			if d := m.Display(); d != bound {
				if d != nil && m.Bind(d.ID(), cam) {
					log.Printf("[main] Camera bound to display %q", d.ID())
				}
				bound = d
			}
			m.Poll()
		}
	}
}

func main() {
	var addr, cfgPath, webPath string
	var simulate, dumpConfig bool
	flag.StringVar(&addr, "i", "", "Address of server")
	flag.StringVar(&cfgPath, "config", "", "Path to yaml or toml config file")
	flag.StringVar(&webPath, "web", "", "Path to folder with web/data static files")
	flag.BoolVar(&simulate, "simulate", false, "Use simulated displays instead of the browser bridge")
	flag.BoolVar(&dumpConfig, "dumpconfig", false, "Print the resulting config and exit")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if webPath != "" {
		cfg.Server.WebPath = webPath
	}
	if simulate {
		cfg.VR.Simulate = true
	}
	if dumpConfig {
		fmt.Print(utils.SDump(cfg))
		return
	}

	var platform vr.Platform
	var bridge *wsbridge.Bridge
	if cfg.VR.Simulate {
		sim := simulator.New()
		for i, name := range cfg.VR.SimulatedDisplays {
			sim.Connect(string(rune('A'+i)), name)
		}
		if len(cfg.VR.SimulatedDisplays) == 0 {
			sim.Connect("A", "")
		}
		platform = sim
	} else {
		bridge = wsbridge.New()
		platform = bridge
	}

	m := vr.NewManager(platform, vr.Config{EnumerateTimeout: cfg.VR.EnumerateTimeout.Duration})
	hub := status.NewHub()
	go hub.Run(m.Subscribe(32))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		log.Fatal(err)
	}
	go frameLoop(ctx, m, cfg.PollInterval())

	srv := &web.Server{
		Manager:    m,
		Status:     hub,
		Bridge:     bridge,
		WebPath:    cfg.Server.WebPath,
		Precision:  cfg.Curves.Precision,
		ClearColor: cfg.Render.ClearColor,
	}
	if cfg.Curves.Clamped() {
		srv.ClampMin, srv.ClampMax = cfg.Curves.ClampMin, cfg.Curves.ClampMax
	}

	errs := make(chan error, 1)
	go func() {
		errs <- web.StartServer(cfg.Server.Addr, srv)
	}()
	hub.Info("Server started on %v", cfg.Server.Addr)

	select {
	case err := <-errs:
		hub.Error("Server stopped: %v", err)
		m.Destroy()
		log.Fatal(err)
	case <-ctx.Done():
		log.Printf("[main] Shutting down")
		m.Destroy()
	}
}
