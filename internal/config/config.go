package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally layered over a file named by
// CONFIG_FILE (yaml or .env). Environment always wins.
type Config struct {
	App       AppConfig
	Flow      FlowConfig
	Assets    AssetConfig
	DB        DBConfig
	Redis     RedisConfig
	Twilio    TwilioConfig
	Callbacks CallbackConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is the scheme+host the provider uses to reach the service.
	// Needed to recompute X-Twilio-Signature behind a TLS terminator.
	PublicBaseURL string

	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is
	// believed when keying the webhook limiter. Empty trusts nobody.
	TrustedProxies []string
}

type FlowConfig struct {
	WhisperPromptURL string
	VoicemailPath    string
	NotifierPath     string
	PromptVoice      string
	ContactHint      string
}

const (
	AssetSourceDir      = "dir"
	AssetSourcePostgres = "postgres"
)

type AssetConfig struct {
	Source      string
	Dir         string
	RoutingPath string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. An empty host disables the SMS delivery guard.
type RedisConfig struct {
	Host      string
	Port      int
	DedupeTTL time.Duration
}

type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	ValidateSignature bool
}

type CallbackConfig struct {
	SigningSecret string
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Load reads and validates configuration from the process environment.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read CONFIG_FILE %s: %w", file, err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	c := Config{}
	var parseErrs []error
	r := reader{v: v}

	c.App.Env = r.str("APP_ENV")
	c.App.Port = r.integer("APP_PORT", 8080, &parseErrs)
	c.App.PublicBaseURL = strings.TrimRight(r.str("PUBLIC_BASE_URL"), "/")
	c.App.TrustedProxies = r.list("TRUSTED_PROXIES")

	c.Flow.WhisperPromptURL = r.str("WHISPER_PROMPT_URL")
	c.Flow.VoicemailPath = r.str("VOICEMAIL_PATH")
	c.Flow.NotifierPath = r.str("NOTIFIER_PATH")
	c.Flow.PromptVoice = r.str("PROMPT_VOICE")
	c.Flow.ContactHint = r.str("PROMPT_CONTACT_HINT")

	c.Assets.Source = strings.ToLower(r.str("ASSET_SOURCE"))
	c.Assets.Dir = r.str("ASSET_DIR")
	c.Assets.RoutingPath = r.str("ROUTING_ASSET_PATH")

	c.DB.Host = r.str("DB_HOST")
	c.DB.Port = r.integer("DB_PORT", 5432, &parseErrs)
	c.DB.User = r.str("DB_USER")
	c.DB.Password = v.GetString("DB_PASSWORD")
	c.DB.Name = r.str("DB_NAME")
	c.DB.SSLMode = r.str("DB_SSLMODE")

	c.Redis.Host = r.str("REDIS_HOST")
	c.Redis.Port = r.integer("REDIS_PORT", 6379, &parseErrs)
	c.Redis.DedupeTTL = r.duration("NOTIFY_DEDUPE_TTL", &parseErrs)

	c.Twilio.AccountSID = r.str("TWILIO_ACCOUNT_SID")
	c.Twilio.AuthToken = v.GetString("TWILIO_AUTH_TOKEN")
	// Unset means "validate in production only".
	validate, set := r.boolean("TWILIO_VALIDATE_SIGNATURE", &parseErrs)
	c.Twilio.ValidateSignature = validate || (!set && c.App.Env == "production")

	c.Callbacks.SigningSecret = v.GetString("CALLBACK_SIGNING_SECRET")

	c.RateLimit.PerSecond = r.float("WEBHOOK_RATE_LIMIT", &parseErrs)
	c.RateLimit.Burst = r.integer("WEBHOOK_RATE_BURST", 0, &parseErrs)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills defaults for optional
// settings that were left empty.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	for _, p := range c.App.TrustedProxies {
		if !isIPOrCIDR(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entries must be IPs or CIDRs, got %q", p))
		}
	}

	if c.Flow.WhisperPromptURL == "" {
		errs = append(errs, errors.New("WHISPER_PROMPT_URL is required"))
	} else if !isAbsoluteURL(c.Flow.WhisperPromptURL) {
		errs = append(errs, fmt.Errorf("WHISPER_PROMPT_URL must be an absolute http(s) url, got %q", c.Flow.WhisperPromptURL))
	}
	if c.Flow.VoicemailPath == "" {
		c.Flow.VoicemailPath = "/voicemail"
	}
	if c.Flow.NotifierPath == "" {
		c.Flow.NotifierPath = "/send-sms"
	}
	if !strings.HasPrefix(c.Flow.VoicemailPath, "/") || !strings.HasPrefix(c.Flow.NotifierPath, "/") {
		errs = append(errs, errors.New("VOICEMAIL_PATH and NOTIFIER_PATH must start with /"))
	} else if c.Flow.VoicemailPath == c.Flow.NotifierPath {
		errs = append(errs, errors.New("VOICEMAIL_PATH and NOTIFIER_PATH must differ"))
	}

	if c.Assets.Source == "" {
		c.Assets.Source = AssetSourceDir
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = "assets"
	}
	if c.Assets.RoutingPath == "" {
		c.Assets.RoutingPath = "/office_data.json"
	}
	switch c.Assets.Source {
	case AssetSourceDir:
	case AssetSourcePostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("ASSET_SOURCE must be one of dir, postgres, got %q", c.Assets.Source))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DedupeTTL <= 0 {
		c.Redis.DedupeTTL = 24 * time.Hour
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.ValidateSignature && !isAbsoluteURL(c.App.PublicBaseURL) {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required when TWILIO_VALIDATE_SIGNATURE is on"))
	}
	if c.IsProduction() && c.Callbacks.SigningSecret == "" && !c.Twilio.ValidateSignature {
		errs = append(errs, errors.New("production requires CALLBACK_SIGNING_SECRET or TWILIO_VALIDATE_SIGNATURE"))
	}

	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("WEBHOOK_RATE_LIMIT and WEBHOOK_RATE_BURST must not be negative"))
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required for ASSET_SOURCE=postgres"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required for ASSET_SOURCE=postgres"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required for ASSET_SOURCE=postgres"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// RedisEnabled reports whether the SMS delivery guard should be wired.
func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// reader wraps viper lookups with the parse-error collection used by load.
type reader struct {
	v *viper.Viper
}

func (r reader) str(key string) string {
	return strings.TrimSpace(r.v.GetString(key))
}

// list splits a comma-separated value, dropping empty entries.
func (r reader) list(key string) []string {
	var out []string
	for _, item := range strings.Split(r.str(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r reader) integer(key string, def int, errs *[]error) int {
	s := r.str(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, s))
		return 0
	}
	return n
}

func (r reader) float(key string, errs *[]error) float64 {
	s := r.str(key)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a number, got %q", key, s))
		return 0
	}
	return f
}

func (r reader) duration(key string, errs *[]error) time.Duration {
	s := r.str(key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration, got %q", key, s))
		return 0
	}
	return d
}

func (r reader) boolean(key string, errs *[]error) (value, set bool) {
	s := r.str(key)
	if s == "" {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a boolean, got %q", key, s))
		return false, true
	}
	return b, true
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isIPOrCIDR(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(s)
	return err == nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
