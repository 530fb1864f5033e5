package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LoginURL                 string `yaml:"login_url"`
	AuthenticatedURLFragment string `yaml:"authenticated_url_fragment"`
	ManualURL                string `yaml:"manual_url"`
	ManualURLFragment        string `yaml:"manual_url_fragment"`

	BrowserProfilePath string `yaml:"browser_profile_path"`
	DownloadDir        string `yaml:"download_dir"`
	DiagnosticsDir     string `yaml:"diagnostics_dir"`
	LicenseSuffix      string `yaml:"license_suffix"`

	ElementTimeout    int `yaml:"element_timeout"`
	NavigationTimeout int `yaml:"navigation_timeout"`
	RedirectTimeout   int `yaml:"redirect_timeout"`
	SettleDelayMs     int `yaml:"settle_delay_ms"`
	MaxLoginRetries   int `yaml:"max_login_retries"`

	MailboxCommand    string   `yaml:"mailbox_command"`
	MailboxArgs       []string `yaml:"mailbox_args"`
	MailboxTimeout    int      `yaml:"mailbox_timeout"`
	MailboxRetries    int      `yaml:"mailbox_retries"`
	MailboxRetryDelay int      `yaml:"mailbox_retry_delay"`
	CodeFile          string   `yaml:"code_file"`

	ArtifactPollIntervalMs int `yaml:"artifact_poll_interval_ms"`

	SyncClock      bool     `yaml:"sync_clock"`
	ClockSyncHosts []string `yaml:"clock_sync_hosts"`

	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	Headless  bool `yaml:"headless"`
	DebugMode bool `yaml:"debug_mode"`

	Selectors SelectorConfig `yaml:"selectors"`
}

type SelectorConfig struct {
	EmailInput    string `yaml:"email_input"`
	PasswordInput string `yaml:"password_input"`
	LoginSubmit   string `yaml:"login_submit"`

	TermsAccept         string `yaml:"terms_accept"`
	EmailCodeInput      string `yaml:"email_code_input"`
	EmailCodeSubmit     string `yaml:"email_code_submit"`
	AuthenticatorInput  string `yaml:"authenticator_input"`
	AuthenticatorSubmit string `yaml:"authenticator_submit"`
	CodeExpired         string `yaml:"code_expired"`

	JumpIndicator       string `yaml:"jump_indicator"`
	JumpTarget          string `yaml:"jump_target"`
	LicenseFileInput    string `yaml:"license_file_input"`
	LicenseUploadSubmit string `yaml:"license_upload_submit"`
	PersonalTypeOption  string `yaml:"personal_type_option"`
	CapacityOption      string `yaml:"capacity_option"`
	TypeSubmit          string `yaml:"type_submit"`
	DownloadButton      string `yaml:"download_button"`
}

func DefaultConfig() *Config {
	userDataDir := getUserDataDir()

	return &Config{
		LoginURL:                 "https://id.unity.com/en/account/edit",
		AuthenticatedURLFragment: "/account/edit",
		ManualURL:                "https://license.unity3d.com/manual",
		ManualURLFragment:        "license.unity3d.com/manual",
		BrowserProfilePath:       filepath.Join(userDataDir, "browser-profile"),
		DownloadDir:              ".",
		DiagnosticsDir:           ".",
		LicenseSuffix:            ".ulf",
		ElementTimeout:           30,
		NavigationTimeout:        30,
		RedirectTimeout:          10,
		SettleDelayMs:            1000,
		MaxLoginRetries:          5,
		MailboxCommand:           "npx",
		MailboxArgs:              []string{"unity-verify-code"},
		MailboxTimeout:           60,
		MailboxRetries:           9,
		MailboxRetryDelay:        30,
		CodeFile:                 "unity_verify_code.txt",
		ArtifactPollIntervalMs:   1000,
		SyncClock:                true,
		ClockSyncHosts:           []string{"https://id.unity.com", "https://www.google.com"},
		ViewportWidth:            1280,
		ViewportHeight:           900,
		Headless:                 true,
		DebugMode:                false,
		Selectors: SelectorConfig{
			EmailInput:          "#conversations_create_session_form_email",
			PasswordInput:       "#conversations_create_session_form_password",
			LoginSubmit:         "input[name='commit']",
			TermsAccept:         "button[name='conversations_accept_updated_tos_form[accept]']",
			EmailCodeInput:      "#conversations_email_tfa_required_form_code",
			EmailCodeSubmit:     "input[name='commit']",
			AuthenticatorInput:  "#conversations_tfa_required_form_verify_code",
			AuthenticatorSubmit: "input[name='commit']",
			CodeExpired:         "a[href*='resend'], .error-msg.code-expired",
			JumpIndicator:       ".g-sign-in-jump",
			JumpTarget:          ".g-sign-in-jump a",
			LicenseFileInput:    "input[name='licenseFile']",
			LicenseUploadSubmit: "input[name='commit']",
			PersonalTypeOption:  "input[id='type_personal'][value='personal']",
			CapacityOption:      "input[id='option3'][name='personal_capacity']",
			TypeSubmit:          "input[class='btn mb10']",
			DownloadButton:      "input[name='commit']",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		return config, config.prepareDirs()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, config.prepareDirs()
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the activation flow cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.LoginURL == "":
		return fmt.Errorf("config: login_url is required")
	case c.AuthenticatedURLFragment == "":
		return fmt.Errorf("config: authenticated_url_fragment is required")
	case c.ManualURL == "":
		return fmt.Errorf("config: manual_url is required")
	case c.LicenseSuffix == "":
		return fmt.Errorf("config: license_suffix is required")
	case c.MailboxCommand == "":
		return fmt.Errorf("config: mailbox_command is required")
	case c.MaxLoginRetries < 0:
		return fmt.Errorf("config: max_login_retries must not be negative")
	case c.MailboxRetries < 0:
		return fmt.Errorf("config: mailbox_retries must not be negative")
	}
	return nil
}

func (c *Config) prepareDirs() error {
	for _, dir := range []string{c.BrowserProfilePath, c.DownloadDir, c.DiagnosticsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) elementTimeout() time.Duration {
	return time.Duration(c.ElementTimeout) * time.Second
}

func (c *Config) navigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeout) * time.Second
}

func (c *Config) redirectTimeout() time.Duration {
	return time.Duration(c.RedirectTimeout) * time.Second
}

func (c *Config) settleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

func (c *Config) artifactPollInterval() time.Duration {
	return time.Duration(c.ArtifactPollIntervalMs) * time.Millisecond
}
