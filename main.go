package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/PixPMusic/gopher-instruments/internal/actions"
	"github.com/PixPMusic/gopher-instruments/internal/config"
	"github.com/PixPMusic/gopher-instruments/internal/definition"
	"github.com/PixPMusic/gopher-instruments/internal/logger"
	"github.com/PixPMusic/gopher-instruments/internal/session"
	"github.com/PixPMusic/gopher-instruments/internal/softsynth"
	"github.com/PixPMusic/gopher-instruments/internal/synth"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "config file (default: user config dir)")
	outDevice  = flag.String("out", "", "output device, \"Internal Synth\" for the built-in synth")
	inDevice   = flag.String("in", "", "input device")
	soundbank  = flag.String("soundbank", "", "SoundFont loaded into the internal synth")
	volume     = flag.Float64("volume", 1, "master volume factor, 0 to 2")
	thru       = flag.Bool("thru", false, "route the input device to the output device")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	a, err := newApp()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "devices":
		err = a.runDevices()
	case "synths":
		err = a.runSynths(args)
	case "resolve":
		err = a.runResolve(args)
	case "run":
		err = a.runActions(ctx, args)
	case "monitor":
		err = a.runMonitor(ctx)
	case "panic":
		err = a.runPanic(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}
	if err != nil {
		a.log.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		a.close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "gopher-instruments - MIDI instrument catalog and device session")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  gopher-instruments [flags] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  devices                      list MIDI devices")
	fmt.Fprintln(os.Stderr, "  synths [-save] [-export f] <file>...  load synth definitions and list the catalog")
	fmt.Fprintln(os.Stderr, "  resolve <token>              resolve an instrument token")
	fmt.Fprintln(os.Stderr, "  run <actions.json>           run an actions file against the output device")
	fmt.Fprintln(os.Stderr, "  monitor                      print messages received on the input device")
	fmt.Fprintln(os.Stderr, "  panic                        silence every channel of the output device")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	catalog  *synth.Catalog
	registry *synth.ReaderRegistry
	sess     *session.Session
}

func newApp() (*app, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if !cfg.FirstLaunchCompleted {
		cfg.FirstLaunchCompleted = true
		if err := cfg.Save(); err != nil {
			zl.Warn("failed to save config", zap.Error(err))
		}
	}

	catalog := synth.NewCatalog(zl)
	registry, err := definition.NewRegistry(catalog.GM1Bank())
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.SynthDefinitions {
		if _, err := catalog.LoadDefinitionFile(path, registry); err != nil {
			zl.Warn("failed to load synth definition", zap.String("file", path), zap.Error(err))
		}
	}
	return &app{cfg: cfg, log: zl, catalog: catalog, registry: registry}, nil
}

func (a *app) close() {
	if a.sess != nil {
		if err := a.sess.Close(); err != nil {
			a.log.Warn("errors while closing session", zap.Error(err))
		}
		a.sess = nil
	}
	_ = a.log.Sync()
}

// openSession opens the devices and applies the device flags on top of the
// saved preferences.
func (a *app) openSession(ctx context.Context) error {
	timeout, err := a.cfg.OpenTimeout()
	if err != nil {
		return err
	}
	a.sess = session.Open(
		session.WithLogger(a.log),
		session.WithSoftSynth(softsynth.New(softsynth.DefaultSampleRate, a.log)),
		session.WithPreferences(config.NewStore(a.cfg)),
		session.WithOpenTimeout(timeout),
	)

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *outDevice != "" {
		if err := a.sess.SetOutDevice(*outDevice); err != nil {
			return err
		}
	}
	if *inDevice != "" {
		if err := a.sess.SetInDevice(*inDevice); err != nil {
			return err
		}
	}
	if set["volume"] {
		if err := a.sess.SetMasterVolume(*volume); err != nil {
			return err
		}
	}
	if set["thru"] {
		a.sess.SetThru(*thru)
	}
	if *soundbank != "" {
		err := a.sess.LoadSoundbank(ctx, *soundbank, func(p session.Progress) {
			fmt.Fprintf(os.Stderr, "soundbank %s: %s\n", p.Path, p.Stage)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) runDevices() error {
	if err := a.openSession(context.Background()); err != nil {
		return err
	}
	outs, err := a.sess.OutDevices()
	if err != nil {
		return err
	}
	ins, err := a.sess.InDevices()
	if err != nil {
		return err
	}

	fmt.Println("Outputs:")
	for _, name := range outs {
		fmt.Printf("  %s %s\n", marker(name == a.sess.OutDevice()), name)
	}
	fmt.Println("Inputs:")
	for _, name := range ins {
		fmt.Printf("  %s %s\n", marker(name == a.sess.InDevice()), name)
	}
	if sb := a.sess.Soundbank(); sb != "" {
		fmt.Printf("Soundbank: %s\n", sb)
	}
	fmt.Printf("Thru: %v  Master volume: %.2f\n", a.sess.Thru(), a.sess.MasterVolume())
	return nil
}

func marker(current bool) string {
	if current {
		return "*"
	}
	return " "
}

func (a *app) runSynths(args []string) error {
	fs := flag.NewFlagSet("synths", flag.ExitOnError)
	save := fs.Bool("save", false, "remember the files in the config")
	export := fs.String("export", "", "write the loaded synths to this YAML file")
	_ = fs.Parse(args)

	var loaded []*synth.MidiSynth
	for _, path := range fs.Args() {
		synths, err := a.catalog.LoadDefinitionFile(path, a.registry)
		if err != nil {
			return err
		}
		loaded = append(loaded, synths...)
		if *save && a.cfg.AddSynthDefinition(path) {
			if err := a.cfg.Save(); err != nil {
				return err
			}
		}
	}

	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := definition.NewDocument(loaded).EncodeYAML(f); err != nil {
			return err
		}
	}

	for _, s := range a.catalog.Synths() {
		c := s.Compatibility()
		fmt.Printf("%s", s.Name())
		if s.Manufacturer() != "" {
			fmt.Printf(" (%s)", s.Manufacturer())
		}
		fmt.Printf("  GM=%v GM2=%v XG=%v GS=%v", c.GM, c.GM2, c.XG, c.GS)
		if s.File() != "" {
			fmt.Printf("  %s", s.File())
		}
		fmt.Println()
		for _, b := range s.Banks() {
			fmt.Printf("  %-24s %4d instruments  default %d/%d %s\n",
				b.Name(), b.Len(), b.DefaultMSB(), b.DefaultLSB(), b.DefaultMethod())
		}
		if s != a.catalog.GM() {
			fmt.Printf("  GM coverage: %.0f%%\n", 100*s.MatchingCoverage(a.catalog.GM1Bank()))
		}
	}
	return nil
}

func (a *app) runResolve(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("resolve takes exactly one token")
	}
	ins, err := synth.LoadInstrumentFromToken(args[0], a.catalog)
	if err != nil {
		a.log.Warn("token not resolved, showing default instrument", zap.Error(err))
		ins = a.catalog.DefaultInstrument()
	}

	token, err := ins.SaveToken()
	if err != nil {
		return err
	}
	fmt.Printf("Instrument: %s\n", ins.FullName())
	fmt.Printf("Address:    %s\n", ins.Address())
	switch r := ins.Role().(type) {
	case synth.Drums:
		fmt.Printf("Drum kit:   %s\n", r.Kit)
	case synth.Melodic:
		if r.Substitute != nil {
			fmt.Printf("Substitute: %s\n", r.Substitute.FullName())
		}
	}
	fmt.Printf("Token:      %s\n", token)

	var msgs []string
	for _, m := range ins.WireMessages(0) {
		msgs = append(msgs, m.String())
	}
	fmt.Printf("Messages:   %s\n", strings.Join(msgs, ", "))
	return nil
}

func (a *app) runActions(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("run takes exactly one actions file")
	}
	script, err := actions.LoadScript(args[0])
	if err != nil {
		return err
	}
	if err := a.openSession(ctx); err != nil {
		return err
	}

	executor := actions.NewExecutor(a.sess, a.catalog, a.log)
	ordered := script.Ordered()
	for i := range ordered {
		if err := executor.Validate(&ordered[i]); err != nil {
			return fmt.Errorf("action %q: %w", ordered[i].Name, err)
		}
	}
	return executor.Run(ctx, ordered)
}

func (a *app) runMonitor(ctx context.Context) error {
	if err := a.openSession(ctx); err != nil {
		return err
	}
	if a.sess.InDevice() == "" {
		return fmt.Errorf("no input device, use -in")
	}
	unsubscribe := a.sess.Subscribe(func(msg gomidi.Message) {
		fmt.Println(msg)
	})
	defer unsubscribe()

	fmt.Fprintf(os.Stderr, "listening on %s, Ctrl-C to stop\n", a.sess.InDevice())
	<-ctx.Done()
	return nil
}

func (a *app) runPanic(ctx context.Context) error {
	if err := a.openSession(ctx); err != nil {
		return err
	}
	return a.sess.Panic()
}
