// Command MissionLink creates, plays and watches link-shareable mission briefings.
//
//	MissionLink create --to NIGHTHAWK --from FALCON --tone romantic --msg "DINNER AT 8"
//	MissionLink watch --from FALCON
//	MissionLink play "https://missionlink.example/mission.html?from=FALCON&to=NIGHTHAWK"
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/MissionLink/internal/config"
	"github.com/BTreeMap/MissionLink/internal/store"
	"github.com/BTreeMap/MissionLink/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDirName is created under the user's home when no state dir is configured
	DefaultStateDirName = ".missionlink"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "missionlink.db"
	// DefaultLogFileName receives logs unless --debug is set
	DefaultLogFileName = "missionlink.log"
	// DefaultBaseURL is where the mission pages are served from
	DefaultBaseURL = "http://localhost:8000/"
)

const usage = `usage: MissionLink <command> [flags]

commands:
  create   build a mission link (optionally send it and watch for the answer)
  watch    show the receiver's decision as it arrives
  play     run the mission briefing for a link

run "MissionLink <command> -h" for the flags of a command`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a sub-command and returns the process exit code.
func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	env := loadEnvironmentConfig()

	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "create":
		err = runCreate(args[1:], env, stdin, stdout, stderr)
	case "watch":
		err = runWatch(args[1:], env, stdin, stdout, stderr)
	case "play":
		err = runPlay(args[1:], env, stdin, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		slog.Error("MissionLink failed", "command", args[0], "error", err)
		fmt.Fprintf(stderr, "MissionLink %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// Config holds environment configuration
type Config struct {
	StateDir    string
	StoreDSN    string
	BaseURL     string
	Content     string
	Muted       bool
	OpenAIKey   string
	WhatsAppDSN string
}

// Flags holds the flags shared by every sub-command
type Flags struct {
	stateDir *string
	storeDSN *string
	content  *string
	baseURL  *string
	debug    *bool
	muted    *bool
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("loadEnvironmentConfig: no .env file loaded", "error", err)
	}

	env := Config{
		StateDir:    os.Getenv("MISSIONLINK_STATE_DIR"),
		StoreDSN:    os.Getenv("MISSIONLINK_STORE_DSN"),
		BaseURL:     os.Getenv("MISSIONLINK_BASE_URL"),
		Content:     os.Getenv("MISSIONLINK_CONTENT"),
		Muted:       util.ParseBoolEnv("MISSIONLINK_MUTED", false),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
	}

	if env.StateDir == "" {
		env.StateDir = defaultStateDir()
	}
	// The shared store falls back to the general database URL
	if env.StoreDSN == "" {
		env.StoreDSN = os.Getenv("DATABASE_URL")
	}
	if env.BaseURL == "" {
		env.BaseURL = DefaultBaseURL
	}

	return env
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultStateDirName
	}
	return filepath.Join(home, DefaultStateDirName)
}

// registerCommonFlags adds the shared flags to fs with environment defaults
func registerCommonFlags(fs *flag.FlagSet, env Config) Flags {
	return Flags{
		stateDir: fs.String("state-dir", env.StateDir, "state directory for the store, logs and lock (overrides $MISSIONLINK_STATE_DIR)"),
		storeDSN: fs.String("store-dsn", env.StoreDSN, "shared store DSN: sqlite path, postgres:// or redis:// (overrides $MISSIONLINK_STORE_DSN or $DATABASE_URL)"),
		content:  fs.String("content", env.Content, "YAML file overriding mission content and timing (overrides $MISSIONLINK_CONTENT)"),
		baseURL:  fs.String("base-url", env.BaseURL, "base URL the mission pages are served from (overrides $MISSIONLINK_BASE_URL)"),
		debug:    fs.Bool("debug", false, "log at debug level to stderr instead of the state directory"),
		muted:    fs.Bool("muted", env.Muted, "disable terminal bells (overrides $MISSIONLINK_MUTED)"),
	}
}

// setup prepares the state directory and logger after flags are parsed.
// The returned func closes the log file.
func setup(flags Flags, stderr io.Writer) (func(), error) {
	if err := os.MkdirAll(*flags.stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", *flags.stateDir, err)
	}
	return initializeLogger(flags, stderr)
}

// initializeLogger installs the default slog logger. The terminal is the UI,
// so logs go to a file unless --debug sends them to stderr.
func initializeLogger(flags Flags, stderr io.Writer) (func(), error) {
	if *flags.debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		return func() {}, nil
	}

	path := filepath.Join(*flags.stateDir, DefaultLogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})))
	return func() { f.Close() }, nil
}

// resolveStoreDSN returns the shared store DSN, defaulting to SQLite in the state directory.
func resolveStoreDSN(flags Flags) string {
	if *flags.storeDSN != "" {
		return *flags.storeDSN
	}
	return filepath.Join(*flags.stateDir, DefaultDBFileName)
}

// openStore opens the shared store selected by the flags.
func openStore(flags Flags) (store.KV, error) {
	dsn := resolveStoreDSN(flags)
	slog.Debug("openStore: opening shared store", "driver", store.DetectDSNType(dsn))

	var opt store.Option
	switch store.DetectDSNType(dsn) {
	case "postgres":
		opt = store.WithPostgresDSN(dsn)
	case "redis":
		opt = store.WithRedisDSN(dsn)
	default:
		opt = store.WithSQLiteDSN(dsn)
	}
	kv, err := store.New(opt)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return kv, nil
}

// loadMission loads content and timing from defaults, the YAML file and the environment.
func loadMission(flags Flags) (*config.Mission, error) {
	m, err := config.Load(*flags.content)
	if err != nil {
		return nil, err
	}
	return m, nil
}
