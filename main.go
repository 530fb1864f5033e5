package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute(newRootCmd()))
}

// execute runs the command tree and reports a failure once, on the
// command's error stream.
func execute(root *cobra.Command) int {
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ulfetch",
		Short:         "Activate a Unity Personal license from a .alf request file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStartCmd())
	return root
}

type startOptions struct {
	configPath       string
	email            string
	password         string
	licenseFile      string
	verificationCode string
	emailPassword    string
	authenticatorKey string
	headless         bool
	debug            bool
	timeout          time.Duration
}

func (o *startOptions) credentials() Credentials {
	return Credentials{
		Email:            envOr(o.email, envEmail),
		Password:         envOr(o.password, envPassword),
		VerificationCode: envOr(o.verificationCode, envVerificationCode),
		EmailPassword:    envOr(o.emailPassword, envEmailPassword),
		AuthenticatorKey: envOr(o.authenticatorKey, envAuthenticatorKey),
	}
}

func newStartCmd() *cobra.Command {
	opts := &startOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Sign in, upload the license request and wait for the .ulf file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "config.yaml", "Path to configuration file")
	flags.StringVar(&opts.email, "email", "", "Unity ID email (or "+envEmail+")")
	flags.StringVar(&opts.password, "password", "", "Unity ID password (or "+envPassword+")")
	flags.StringVar(&opts.licenseFile, "alf", "", "Path to the .alf license request file (or "+envLicenseRequest+")")
	flags.StringVar(&opts.verificationCode, "code", "", "Verification code to use instead of fetching or generating one (or "+envVerificationCode+")")
	flags.StringVar(&opts.emailPassword, "email-password", "", "Mailbox password if different from the Unity password (or "+envEmailPassword+")")
	flags.StringVar(&opts.authenticatorKey, "authenticator-key", "", "Authenticator app secret for TOTP 2FA (or "+envAuthenticatorKey+")")
	flags.BoolVar(&opts.headless, "headless", true, "Run the browser without a window")
	flags.BoolVar(&opts.debug, "debug", false, "Enable detailed debug logging")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Give up after this long (0 waits for the license file indefinitely)")

	return cmd
}

func runStart(cmd *cobra.Command, opts *startOptions) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	if err := InitLocale(); err != nil {
		log.Printf("Warning: Locale initialization failed, using message keys: %v", err)
	}

	checkUserDataDir()

	config, err := LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("headless") {
		config.Headless = opts.headless
	}
	if opts.debug {
		config.DebugMode = true
	}

	licenseFile := envOr(opts.licenseFile, envLicenseRequest)
	if licenseFile == "" {
		return fmt.Errorf("no license request file given, use --alf or %s", envLicenseRequest)
	}

	logger := NewLogger(config.DebugMode, cmd.ErrOrStderr())

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║               Unity License Activation                   ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Printf("License request: %s\n", licenseFile)
	fmt.Printf("Download dir:    %s\n", config.DownloadDir)
	fmt.Println()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	path, err := NewActivator(config, logger).Run(ctx, opts.credentials(), licenseFile)
	if err != nil {
		return fmt.Errorf("license activation failed: %w", err)
	}

	fmt.Printf(T("license_ready")+"\n", path)
	return nil
}

// Store init error for later display (after locale is loaded)
var initUserDataDirError error

func init() {
	if err := os.MkdirAll(getUserDataDir(), 0755); err != nil {
		initUserDataDirError = err
	}
}

func checkUserDataDir() {
	if initUserDataDirError != nil {
		log.Printf("Warning: could not create %s, the browser profile will not persist: %v",
			getUserDataDir(), initUserDataDirError)
	}
}

func getUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./ulfetch-data"
	}
	return filepath.Join(home, ".ulfetch")
}
