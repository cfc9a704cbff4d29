// Package interactive provides the onboardctl interactive shell.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/alljoyn/services-onboarding/pkg/onboarding"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

// Engine is the part of the onboarding engine the shell drives.
type Engine interface {
	Start(onboarding.Request) error
	Abort() error
	Offboard(locator string, port uint16) error
	State() onboarding.State
	Device() *onboarding.DeviceContext
}

// Shell is a line-oriented onboarding console. It is also the engine's
// listener and prints notifications as they arrive.
type Shell struct {
	eng Engine
	req onboarding.Request
	rl  *readline.Instance

	mu  sync.Mutex
	out io.Writer
}

// New creates a Shell reading from the terminal. req seeds the request
// edited with set and timeout.
func New(req onboarding.Request) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "onboard> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{req: req, rl: rl, out: rl.Stdout()}, nil
}

// NewWithWriter creates a Shell without a terminal, driven through Execute.
func NewWithWriter(req onboarding.Request, w io.Writer) *Shell {
	return &Shell{req: req, out: w}
}

// Attach sets the engine. It must be called before Run or Execute.
func (s *Shell) Attach(eng Engine) {
	s.eng = eng
}

// Close releases the terminal.
func (s *Shell) Close() error {
	if s.rl == nil {
		return nil
	}
	return s.rl.Close()
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			s.printf("Exiting...\n")
			return
		}
		if s.Execute(line) {
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case "help", "?":
		s.printHelp()
	case "set":
		s.cmdSet(args)
	case "timeout":
		s.cmdTimeout(args)
	case "show":
		s.cmdShow()
	case "start", "s":
		s.report(s.eng.Start(s.req))
	case "abort", "a":
		s.report(s.eng.Abort())
	case "state":
		s.cmdState()
	case "offboard":
		s.cmdOffboard(args)
	case "quit", "exit", "q":
		if s.eng.State().Active() {
			_ = s.eng.Abort()
		}
		return true
	default:
		s.printf("Unknown command: %s (type 'help')\n", parts[0])
	}
	return false
}

func (s *Shell) printHelp() {
	s.printf(`Commands:
  set onboardee|target <ssid> [auth] [passphrase]
  timeout <onboardee|target> <join|announce> <duration>
  show                      Print the request
  start                     Start or resume onboarding
  abort                     Abort the run and restore the network
  state                     Print state and device
  offboard <locator> <port> Reset a device's configuration
  quit
`)
}

func (s *Shell) cmdSet(args []string) {
	if len(args) < 2 || len(args) > 4 {
		s.printf("Usage: set onboardee|target <ssid> [auth] [passphrase]\n")
		return
	}
	var n *wifi.Network
	switch strings.ToLower(args[0]) {
	case "onboardee":
		n = &s.req.Onboardee
	case "target":
		n = &s.req.Target
	default:
		s.printf("Unknown network %q (use onboardee or target)\n", args[0])
		return
	}

	next := wifi.Network{SSID: args[1]}
	if len(args) > 2 {
		auth, err := wifi.ParseAuthType(args[2])
		if err != nil {
			s.printf("Error: %v\n", err)
			return
		}
		next.Auth = auth
	}
	if len(args) > 3 {
		next.Passphrase = args[3]
	}
	*n = next
	s.printf("%s = %s\n", strings.ToLower(args[0]), next)
}

func (s *Shell) cmdTimeout(args []string) {
	if len(args) != 3 {
		s.printf("Usage: timeout <onboardee|target> <join|announce> <duration>\n")
		return
	}
	d, err := time.ParseDuration(args[2])
	if err != nil || d <= 0 {
		s.printf("Invalid duration %q\n", args[2])
		return
	}

	var field *time.Duration
	switch strings.ToLower(args[0]) + "/" + strings.ToLower(args[1]) {
	case "onboardee/join":
		field = &s.req.OnboardeeJoinTimeout
	case "onboardee/announce":
		field = &s.req.OnboardeeAnnounceTimeout
	case "target/join":
		field = &s.req.TargetJoinTimeout
	case "target/announce":
		field = &s.req.TargetAnnounceTimeout
	default:
		s.printf("Unknown timeout %s %s\n", args[0], args[1])
		return
	}
	*field = d
	s.printf("%s %s timeout = %s\n", args[0], args[1], d)
}

func (s *Shell) cmdShow() {
	r := s.req
	s.printf("onboardee: %s join=%s announce=%s\n", r.Onboardee, orDefault(r.OnboardeeJoinTimeout), orDefault(r.OnboardeeAnnounceTimeout))
	s.printf("target:    %s join=%s announce=%s\n", r.Target, orDefault(r.TargetJoinTimeout), orDefault(r.TargetAnnounceTimeout))
}

func orDefault(d time.Duration) string {
	if d == 0 {
		return "default"
	}
	return d.String()
}

func (s *Shell) cmdState() {
	st := s.eng.State()
	s.printf("state: %s (phase %s)\n", st, st.Phase())
	if d := s.eng.Device(); d != nil {
		s.printDevice(d)
	}
}

func (s *Shell) cmdOffboard(args []string) {
	if len(args) != 2 {
		s.printf("Usage: offboard <locator> <port>\n")
		return
	}
	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil || port == 0 {
		s.printf("Invalid port %q\n", args[1])
		return
	}
	s.report(s.eng.Offboard(args[0], uint16(port)))
}

func (s *Shell) report(err error) {
	if err != nil {
		s.printf("Error: %v\n", err)
	}
}

func (s *Shell) printDevice(d *onboarding.DeviceContext) {
	s.printf("device: %s\n", d.ID)
	if d.Onboardee != nil {
		s.printf("  onboardee: %s at %s\n", d.Onboardee.DeviceName, d.Onboardee.Endpoint())
	}
	if d.Target != nil {
		s.printf("  target:    %s at %s\n", d.Target.DeviceName, d.Target.Endpoint())
	}
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// OnStateChange prints the transition.
func (s *Shell) OnStateChange(c onboarding.StateChange) {
	s.printf("[%s] %s\n", c.Phase, c.State)
	if c.State == onboarding.StateTargetAnnounceReceived && c.Device != nil {
		s.printDevice(c.Device)
	}
}

// OnError prints the failure and whether start resumes it.
func (s *Shell) OnError(e onboarding.ErrorEvent) {
	s.printf("[%s] %s: %s\n", e.Phase, e.Kind, e.Detail)
	if e.Kind.Resumable() {
		s.printf("  'start' resumes from here\n")
	}
}

// OnOffboarded prints the offboarded endpoint.
func (s *Shell) OnOffboarded(locator string, port uint16) {
	s.printf("offboarded %s:%d\n", locator, port)
}

var (
	_ onboarding.Listener         = (*Shell)(nil)
	_ onboarding.OffboardListener = (*Shell)(nil)
)
