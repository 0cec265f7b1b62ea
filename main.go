package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"oni-radar.klederson.com/internal/app"
	"oni-radar.klederson.com/internal/beacon"
	"oni-radar.klederson.com/internal/config"
	"oni-radar.klederson.com/internal/game"
	"oni-radar.klederson.com/internal/radio"
	"oni-radar.klederson.com/internal/validation"
)

var (
	flagConfig      string
	flagDemo        bool
	flagUUID        string
	flagSession     int
	flagPlayer      int
	flagLogLevel    string
	flagNoAdvertise bool
	flagNoScan      bool

	flagActual   float64
	flagDuration time.Duration
	flagCSV      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oni-radar",
		Short: "ONI-RADAR - BLE beacon proximity for oni vs onmyoji",
		Long: `ONI-RADAR advertises this device as an iBeacon-style game beacon and
listens for the other players, turning signal strength into distance.
The oni's distance drives a heartbeat for every onmyoji.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth.
Use --demo flag for a simulated session without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to config file (default: ~/.config/oni-radar/config.yaml)")
	pf.BoolVar(&flagDemo, "demo", false, "Simulate a session with fake players (no Bluetooth required)")
	pf.StringVar(&flagUUID, "uuid", "", "Game UUID shared by all players")
	pf.IntVar(&flagSession, "session", 0, "Session id, advertised as major")
	pf.IntVar(&flagPlayer, "player", 0, fmt.Sprintf("Player id, advertised as minor (%d is the oni)", config.KillerID))
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&flagNoAdvertise, "no-advertise", false, "Listen only")
	pf.BoolVar(&flagNoScan, "no-scan", false, "Advertise only")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Grade distance estimates against a measured distance",
		Long: `Place one other player at a tape-measured distance and run calibrate.
Every report tick the nearest player's estimate is graded against --actual.`,
		RunE: runCalibrate,
	}
	calibrateCmd.Flags().Float64Var(&flagActual, "actual", 1.0, "Measured distance to the nearest player in meters")
	calibrateCmd.Flags().DurationVar(&flagDuration, "duration", 30*time.Second, "How long to sample")
	calibrateCmd.Flags().StringVar(&flagCSV, "csv", "", "Write records to this CSV file")
	rootCmd.AddCommand(calibrateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	printBanner(cfg)

	model, err := runLoop(cfg, logger, nil)
	if err != nil {
		return err
	}

	r := model.Report()
	if d, ok := r.DistanceToKiller(); ok {
		logger.Info("[GAME] final", "players", len(r.Players), "killer_distance", d)
	} else {
		logger.Info("[GAME] final", "players", len(r.Players))
	}
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if flagActual < 0 {
		return fmt.Errorf("--actual must be >= 0")
	}

	v := cfg.Validation
	validator := validation.New(validation.Options{
		NearRange:    v.NearRange,
		MidRange:     v.MidRange,
		NearAccuracy: v.NearAccuracy,
		MidAccuracy:  v.MidAccuracy,
		FarAccuracy:  v.FarAccuracy,
		History:      v.History,
	})

	logger.Info("[GAME] calibrating", "actual", flagActual, "duration", flagDuration)
	_, err = runLoop(cfg, logger, &app.Calibration{
		Actual:    flagActual,
		Duration:  flagDuration,
		Validator: validator,
	})
	if err != nil {
		return err
	}

	fmt.Println(validator.Stats())

	if flagCSV != "" {
		f, err := os.Create(flagCSV)
		if err != nil {
			return fmt.Errorf("creating csv: %w", err)
		}
		defer f.Close()
		if err := validator.WriteCSV(f); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		logger.Info("[GAME] records written", "path", flagCSV)
	}
	return nil
}

// setup loads config, applies flag overrides and installs the default logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("uuid") {
		cfg.Beacon.UUID = flagUUID
	}
	if flags.Changed("session") {
		cfg.Beacon.SessionID = flagSession
	}
	if flags.Changed("player") {
		cfg.Beacon.PlayerID = flagPlayer
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flagNoAdvertise {
		cfg.Advertise = false
	}
	if flagNoScan {
		cfg.Scan = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// runLoop brings the radio up, runs the headless loop until interrupted
// or done, and always brings the radio down.
func runLoop(cfg *config.Config, logger *slog.Logger, cal *app.Calibration) (app.AppModel, error) {
	adv, err := cfg.AdvertisingConfig()
	if err != nil {
		return app.AppModel{}, err
	}

	var (
		r  beacon.Radio
		bt *radio.Bluetooth
	)
	if flagDemo {
		simOpts := radio.DefaultSimulatorOptions()
		simOpts.Session = adv.Major
		simOpts.KillerID = uint16(cfg.Game.KillerID)
		simOpts.TxPower = cfg.Beacon.TxPower
		r = radio.NewSimulator(simOpts)
	} else {
		bt = radio.NewBluetooth(int8(cfg.Beacon.TxPower), logger)
		r = bt
	}

	service := beacon.NewService(r, beacon.NewRegistry(cfg.RegistryOptions()), logger)
	hb := cfg.Game.Heartbeat
	model := app.New(service, app.Options{
		Advertise: cfg.Advertise,
		Scan:      cfg.Scan,
		Beacon:    adv,
		Detector: game.Detector{
			Session:  adv.Major,
			MyID:     adv.Minor,
			KillerID: uint16(cfg.Game.KillerID),
			MaxRange: cfg.Game.MaxRange,
		},
		Heartbeat:      game.HeartbeatThresholds{Extreme: hb.Extreme, Near: hb.Near, Mid: hb.Mid, Far: hb.Far},
		EvictInterval:  cfg.Registry.EvictInterval,
		ReportInterval: cfg.Game.ReportInterval,
		Calibration:    cal,
	}, logger)

	p := tea.NewProgram(model, tea.WithoutRenderer(), tea.WithInput(nil))
	if bt != nil {
		bt.OnError = func(err error) {
			p.Send(app.ScanErrorMsg{Err: err})
		}
	}

	if err := model.Start(); err != nil {
		var rerr *beacon.RadioError
		if errors.As(err, &rerr) && rerr.PermissionDenied() {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintln(os.Stderr, "Bluetooth requires elevated permissions.")
			fmt.Fprintln(os.Stderr, "Try one of:")
			fmt.Fprintln(os.Stderr, "  sudo ./oni-radar")
			fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./oni-radar")
			fmt.Fprintln(os.Stderr, "  ./oni-radar --demo    (simulated session, no hardware needed)")
		}
		return model, err
	}
	defer func() {
		if err := model.Stop(); err != nil {
			logger.Warn("[GAME] shutdown", "error", err)
		}
	}()

	final, err := p.Run()
	if errors.Is(err, tea.ErrInterrupted) || errors.Is(err, tea.ErrProgramKilled) {
		logger.Info("[GAME] interrupted, shutting down")
		err = nil
	}
	if err != nil {
		return model, err
	}
	if m, ok := final.(app.AppModel); ok {
		model = m
	}
	return model, model.Err()
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	role := "onmyoji"
	if cfg.Beacon.PlayerID == cfg.Game.KillerID {
		role = "oni"
	}
	mode := "bluetooth"
	if flagDemo {
		mode = "demo"
	}
	fmt.Printf("=== %s v%s ===\n", config.AppName, config.AppVersion)
	fmt.Printf("  Beacon:  %s:%d.%d\n", cfg.Beacon.UUID, cfg.Beacon.SessionID, cfg.Beacon.PlayerID)
	fmt.Printf("  Role:    %s\n", role)
	fmt.Printf("  Radio:   %s (advertise=%t scan=%t)\n", mode, cfg.Advertise, cfg.Scan)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("====================")
}
