package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BTreeMap/LockIn/internal/api"
	"github.com/BTreeMap/LockIn/internal/flow"
	"github.com/BTreeMap/LockIn/internal/genai"
	"github.com/BTreeMap/LockIn/internal/lockfile"
	"github.com/BTreeMap/LockIn/internal/messaging"
	"github.com/BTreeMap/LockIn/internal/recovery"
	"github.com/BTreeMap/LockIn/internal/scheduler"
	"github.com/BTreeMap/LockIn/internal/store"
	"github.com/BTreeMap/LockIn/internal/twiliowhatsapp"
	"github.com/BTreeMap/LockIn/internal/util"
	"github.com/BTreeMap/LockIn/internal/whatsapp"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LockIn state data
	DefaultStateDir = "/var/lib/lockin"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "lockin.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// MemoryDSN selects the in-memory store.
	MemoryDSN = "memory"

	TransportTwilio   = "twilio"
	TransportWhatsApp = "whatsapp"
)

func main() {
	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(flag.CommandLine, config, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	closeLog := initializeLogger(flags.LogLevel, flags.LogFile)
	defer closeLog()

	if err := flags.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("LockIn failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LockIn exited successfully")
}

// Config holds environment configuration. Flags is the same set after
// command-line overrides.
type Config struct {
	StateDir         string
	DatabaseURL      string
	OpenAIKey        string
	OpenAIModel      string
	GenAIDebug       bool
	APIAddr          string
	Transport        string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioWebhookURL string
	WhatsAppDSN      string
	QROutput         string
	NumericCode      bool
	SessionTTL       time.Duration
	DefaultTimezone  string
	LogFile          string
	LogLevel         string
}

// Flags is the resolved runtime configuration.
type Flags Config

// loadEnvironmentConfig loads configuration from the .env file and environment variables.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		StateDir:         util.GetEnv("LOCKIN_STATE_DIR", DefaultStateDir),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      util.GetEnv("OPENAI_MODEL", string(genai.DefaultModel)),
		GenAIDebug:       util.ParseBoolEnv("GENAI_DEBUG", false),
		APIAddr:          util.GetEnv("API_ADDR", api.DefaultAddr),
		Transport:        util.GetEnv("TRANSPORT", TransportTwilio),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioWebhookURL: os.Getenv("TWILIO_WEBHOOK_URL"),
		WhatsAppDSN:      os.Getenv("WHATSAPP_DB_DSN"),
		SessionTTL:       util.ParseDurationEnv("SESSION_TTL", flow.DefaultSessionTTL),
		DefaultTimezone:  util.GetEnv("DEFAULT_TIMEZONE", "UTC"),
		LogFile:          os.Getenv("LOG_FILE"),
		LogLevel:         util.GetEnv("LOG_LEVEL", "debug"),
	}

	slog.Debug("environment variables loaded",
		"LOCKIN_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TRANSPORT", config.Transport,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"API_ADDR", config.APIAddr)
	return config
}

// parseCommandLineFlags parses args on fs with environment values as defaults.
// Database paths left unset are derived from the final state directory.
func parseCommandLineFlags(fs *flag.FlagSet, config Config, args []string) (Flags, error) {
	f := Flags(config)
	fs.StringVar(&f.StateDir, "state-dir", config.StateDir, "state directory for LockIn data (overrides $LOCKIN_STATE_DIR)")
	fs.StringVar(&f.DatabaseURL, "db-dsn", config.DatabaseURL, "store DSN: postgres URL, SQLite path or \"memory\" (overrides $DATABASE_URL)")
	fs.StringVar(&f.OpenAIKey, "openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&f.OpenAIModel, "openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)")
	fs.BoolVar(&f.GenAIDebug, "genai-debug", config.GenAIDebug, "dump OpenAI requests under the state directory")
	fs.StringVar(&f.APIAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&f.Transport, "transport", config.Transport, "message transport: twilio or whatsapp (overrides $TRANSPORT)")
	fs.StringVar(&f.WhatsAppDSN, "whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow device store DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&f.QROutput, "qr-output", "", "path to write the WhatsApp login QR code")
	fs.BoolVar(&f.NumericCode, "numeric-code", false, "use numeric WhatsApp login code instead of QR code")
	fs.DurationVar(&f.SessionTTL, "session-ttl", config.SessionTTL, "idle expiry of in-progress conversations (overrides $SESSION_TTL)")
	fs.StringVar(&f.DefaultTimezone, "default-timezone", config.DefaultTimezone, "timezone for new users (overrides $DEFAULT_TIMEZONE)")
	fs.StringVar(&f.LogFile, "log-file", config.LogFile, "also write logs to this rotated file (overrides $LOG_FILE)")
	fs.StringVar(&f.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error (overrides $LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if f.DatabaseURL == "" {
		f.DatabaseURL = filepath.Join(f.StateDir, DefaultDBFileName)
	}
	if f.WhatsAppDSN == "" {
		f.WhatsAppDSN = "file:" + filepath.Join(f.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	return f, nil
}

// Validate reports configuration errors that must stop startup.
func (f Flags) Validate() error {
	switch f.Transport {
	case TransportTwilio:
		if f.TwilioAccountSID == "" || f.TwilioAuthToken == "" || f.TwilioFromNumber == "" {
			return errors.New("TRANSPORT=twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER")
		}
	case TransportWhatsApp:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", f.Transport, TransportTwilio, TransportWhatsApp)
	}
	if _, err := time.LoadLocation(f.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", f.DefaultTimezone, err)
	}
	return nil
}

// initializeLogger installs a text slog handler on stdout, teeing to a
// lumberjack-rotated file when logFile is set. The returned func closes the file.
func initializeLogger(level, logFile string) func() {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelDebug
	}
	var out io.Writer = os.Stdout
	closer := func() {}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = func() { rotator.Close() }
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})))
	return closer
}

// openStore picks the backend from the DSN.
func openStore(dsn string) (store.Store, error) {
	switch {
	case dsn == MemoryDSN:
		slog.Warn("Using in-memory store; data is lost on restart")
		return store.NewInMemoryStore(), nil
	case store.DetectDSNType(dsn) == "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
		return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
	}
}

// buildGenAI returns nil without an API key; the coach then uses canned replies.
func buildGenAI(f Flags) (genai.ClientInterface, error) {
	if f.OpenAIKey == "" {
		slog.Warn("No OpenAI API key configured; free-text replies use fallbacks")
		return nil, nil
	}
	opts := []genai.Option{genai.WithAPIKey(f.OpenAIKey), genai.WithModel(f.OpenAIModel)}
	if f.GenAIDebug {
		opts = append(opts, genai.WithDebugMode(true, f.StateDir))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildTransport creates the messaging service and, for Twilio, its webhook handler.
func buildTransport(f Flags) (messaging.Service, *messaging.TwilioService, error) {
	if f.Transport == TransportWhatsApp {
		var waOpts []whatsapp.Option
		waOpts = append(waOpts, whatsapp.WithDBDSN(f.WhatsAppDSN))
		if f.QROutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(f.QROutput))
		}
		if f.NumericCode {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client, filepath.Join(f.StateDir, "media")), nil, nil
	}

	client, err := twiliowhatsapp.NewClient(
		twiliowhatsapp.WithAccountSID(f.TwilioAccountSID),
		twiliowhatsapp.WithAuthToken(f.TwilioAuthToken),
		twiliowhatsapp.WithFromWhats(f.TwilioFromNumber),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Twilio client: %w", err)
	}
	var opts []messaging.TwilioOption
	if f.TwilioWebhookURL != "" {
		opts = append(opts, messaging.WithWebhookValidation(f.TwilioAuthToken, f.TwilioWebhookURL))
	} else {
		slog.Warn("TWILIO_WEBHOOK_URL not set; webhook signatures are not verified")
	}
	svc := messaging.NewTwilioService(client, opts...)
	return svc, svc, nil
}

// run wires every component and blocks until ctx is cancelled or the API server fails.
func run(ctx context.Context, f Flags) error {
	slog.Info("Bootstrapping LockIn", "state_dir", f.StateDir, "transport", f.Transport, "api_addr", f.APIAddr)

	lock, err := lockfile.AcquireLock(f.StateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(f.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	gen, err := buildGenAI(f)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	msgService, twilioSvc, err := buildTransport(f)
	if err != nil {
		return err
	}
	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer msgService.Stop()
	go messaging.LogReceipts(ctx, msgService)

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	coachOpts := []flow.Option{
		flow.WithSender(msgService),
		flow.WithScheduler(sched),
		flow.WithSessionTTL(f.SessionTTL),
		flow.WithDefaultTimezone(f.DefaultTimezone),
	}
	if gen != nil {
		coachOpts = append(coachOpts, flow.WithGenAI(gen))
	}
	coach := flow.NewCoach(st, coachOpts...)

	rh := messaging.NewResponseHandler(msgService, coach, messaging.WithDedup(st))
	rh.Start(ctx)
	defer rh.Wait()

	rm := recovery.NewRecoveryManager(st)
	rm.RegisterRecoverable(recovery.SessionSweep{})
	rm.RegisterRecoverable(recovery.ScheduleRecovery{Registrar: coach})
	if err := rm.RecoverAll(ctx); err != nil {
		slog.Warn("Recovery finished with errors", "error", err)
	}

	apiOpts := []api.Option{api.WithAddr(f.APIAddr), api.WithSchedules(sched)}
	if twilioSvc != nil {
		apiOpts = append(apiOpts, api.WithTwilioWebhook(twilioSvc.TwilioWebhookHandler))
	}
	return api.NewServer(st, apiOpts...).Run(ctx)
}

