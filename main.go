// Package main provides the entry point for the readalong CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/readalong/speech"
	"github.com/dgnsrekt/readalong/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	width      uint
	mouse      bool
	loop       bool
	plain      bool
	debug      bool
	engine     string
	rate       float64

	rootCmd = &cobra.Command{
		Use:   "readalong [SOURCE]",
		Short: "Read text aloud and follow along word by word",
		Long: paragraph(
			fmt.Sprintf("\nRead text aloud and %s as it is spoken.", keyword("follow along")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	loop = viper.GetBool("loop")
	debug = viper.GetBool("debug")

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	if plain && mouse {
		return errors.New("cannot use mouse in plain mode")
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal {
		plain = true
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

// loadSpeechConfig reads the speech settings and applies CLI overrides.
func loadSpeechConfig(cmd *cobra.Command) (speech.Config, error) {
	cfg, err := speech.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("engine") {
		cfg.Engine = engine
	}
	if cmd.Flags().Changed("rate") {
		cfg.Rate = rate
	}
	for i, dir := range cfg.Piper.VoiceDirs {
		cfg.Piper.VoiceDirs[i] = expandPath(dir)
	}
	if cfg.Piper.Model != "" {
		cfg.Piper.Model = expandPath(cfg.Piper.Model)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	} else if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if !yes {
		return cmd.Help()
	}

	text, title, err := readSource(arg)
	if err != nil {
		return err
	}
	return speakText(cmd, text, title)
}

// speakText reads text aloud in the tui, or in plain mode.
func speakText(cmd *cobra.Command, text, title string) error {
	cfg, err := loadSpeechConfig(cmd)
	if err != nil {
		return err
	}
	session, closer, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	if plain {
		return runPlain(cmd.Context(), session, text, cfg.Rate, os.Stdout)
	}
	return runTUI(session, text, title, cfg.Rate)
}

func runTUI(session *speech.Session, text, title string, rate float64) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Title = title
	cfg.Rate = rate
	cfg.EnableMouse = mouse
	cfg.Loop = cfg.Loop || loop
	if width > 0 {
		cfg.Width = width
	}

	if _, err := ui.NewProgram(cfg, session, text).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVarP(&engine, "engine", "e", speech.EngineAuto, "speech engine: auto, local, remote or mock")
	rootCmd.PersistentFlags().Float64VarP(&rate, "rate", "r", 1.0, "speaking rate (0.25 to 4.0)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to use the terminal width)")
	rootCmd.Flags().BoolVarP(&loop, "loop", "l", false, "start over when the text has been read")
	rootCmd.PersistentFlags().BoolVarP(&plain, "plain", "p", false, "print spoken words instead of running the tui")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("loop", rootCmd.Flags().Lookup("loop"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("width", 0)
	viper.SetDefault("loop", false)
	speech.SetDefaults()

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, tokensCmd, unitCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "readalong")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readalong")}, dirs...)
	}

	if c := os.Getenv("READALONG_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readalong")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readalong")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "readalong.yml")
}
