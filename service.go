package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"

	"thumbnail_studio/core"
)

// program adapts run to the service manager's Start/Stop lifecycle.
type program struct {
	opts   options
	cancel context.CancelFunc
	done   chan int
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan int, 1)
	go func() {
		p.done <- run(ctx, p.opts)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		return nil
	case <-time.After(90 * time.Second):
		return fmt.Errorf("timeout waiting for studio to stop")
	}
}

func serviceConfig(opts options) *service.Config {
	args := []string{}
	if opts.envFile != "" {
		args = append(args, "-env", opts.envFile)
	}
	if opts.offline {
		args = append(args, "-offline")
	}
	wd, _ := os.Getwd()
	return &service.Config{
		Name:             "thumbnail-studio",
		DisplayName:      "Thumbnail Studio",
		Description:      "Generates and catalogs vehicle marketing thumbnails.",
		Arguments:        args,
		WorkingDirectory: wd,
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
}

// runAsService runs under the platform service manager when the process
// was not started from a terminal.
func runAsService(opts options) (bool, int) {
	if service.Interactive() {
		return false, 0
	}
	prg := &program{opts: opts}
	s, err := service.New(prg, serviceConfig(opts))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create service: %v\n", err)
		return true, core.ExitCodeError
	}
	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "service run failed: %v\n", err)
		return true, core.ExitCodeError
	}
	return true, core.ExitCodeSuccess
}

// controlService handles -service install|uninstall|start|stop|restart|status.
func controlService(opts options) int {
	s, err := service.New(&program{opts: opts}, serviceConfig(opts))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create service: %v\n", err)
		return core.ExitCodeError
	}

	if opts.serviceAction == "status" {
		status, err := s.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			return core.ExitCodeError
		}
		fmt.Println(statusName(status))
		return core.ExitCodeSuccess
	}

	if err := service.Control(s, opts.serviceAction); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\nvalid actions: %v, status\n", opts.serviceAction, err, service.ControlAction)
		return core.ExitCodeError
	}
	fmt.Printf("service %s: ok\n", opts.serviceAction)
	return core.ExitCodeSuccess
}

func statusName(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
