package integration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings defaults and limits
const (
	DefaultTimeoutSeconds   = 30
	DefaultBulkBatchSize    = 50
	MaxBulkBatchSize        = 100
	DefaultBulkItemDelay    = 3 * time.Second
	DefaultSuccessRetention = 30 * 24 * time.Hour
	DefaultErrorRetention   = 90 * 24 * time.Hour
	DefaultSettingsCacheTTL = 5 * time.Minute
)

var settingsValidator = validator.New()

// Settings is the integration configuration for one unit of work. It is
// loaded once per unit of work and passed explicitly through every call,
// so credential rotation takes effect on the next load.
type Settings struct {
	Enabled  bool
	TestMode bool

	// Storefront credentials
	APIBaseURL  string `validate:"omitempty,url"`
	SiteBaseURL string `validate:"omitempty,url"`
	SiteID      string `validate:"max=100"`
	AccountID   string `validate:"max=100"`
	APIKey      string `validate:"max=2000"`

	// Field toggles
	SyncDescription bool
	SyncPrice       bool
	SyncImages      bool
	SyncInventory   bool
	SyncCategories  bool
	SyncBrand       bool
	SyncWeight      bool

	// Trigger toggles
	AutoSyncItems     bool
	AutoSyncInventory bool

	// Retry and timeouts
	RetryAttempts  int           `validate:"gte=0,lte=10"`
	RetryBaseDelay time.Duration `validate:"gte=0"`
	MaxRetryDelay  time.Duration `validate:"gte=0"`
	TimeoutSeconds int           `validate:"gte=5,lte=300"`

	// Webhooks
	WebhookSecret         string `validate:"omitempty,min=16"`
	AllowUnsignedWebhooks bool

	// Defaults used by the transform layer and inbound orders
	DefaultPriceList string
	DefaultWarehouse string
	DefaultCurrency  string `validate:"omitempty,len=3"`

	// Bulk behaviour
	BulkBatchSize int           `validate:"gte=1,lte=100"`
	BulkItemDelay time.Duration `validate:"gte=0"`

	// VerifyRemoteBeforeUpdate issues a GET before each update and falls back
	// to create when the storefront no longer has the entity
	VerifyRemoteBeforeUpdate bool

	// Audit retention
	SuccessRetention time.Duration `validate:"gte=0"`
	ErrorRetention   time.Duration `validate:"gte=0"`

	// Health check state
	LastHealthCheckAt *time.Time
	LastHealthStatus  string
	LastHealthMessage string

	UpdatedAt time.Time
}

// DefaultSettings returns settings with every default applied. The
// integration starts disabled.
func DefaultSettings() Settings {
	return Settings{
		SyncDescription:  true,
		SyncPrice:        true,
		SyncImages:       true,
		SyncInventory:    true,
		SyncCategories:   true,
		SyncBrand:        true,
		SyncWeight:       true,
		AutoSyncItems:    true,
		RetryAttempts:    DefaultRetryAttempts,
		RetryBaseDelay:   DefaultRetryBaseDelay,
		MaxRetryDelay:    DefaultMaxRetryDelay,
		TimeoutSeconds:   DefaultTimeoutSeconds,
		DefaultCurrency:  "USD",
		BulkBatchSize:    DefaultBulkBatchSize,
		BulkItemDelay:    DefaultBulkItemDelay,
		SuccessRetention: DefaultSuccessRetention,
		ErrorRetention:   DefaultErrorRetention,
	}
}

// Validate validates field ranges, and requires credentials when enabled
func (s Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.Enabled && !s.HasCredentials() {
		return fmt.Errorf("%w: api base url, api key and site id are required when enabled", ErrInvalidSettings)
	}
	return nil
}

// HasCredentials reports whether every credential needed for a remote call is set
func (s Settings) HasCredentials() bool {
	return strings.TrimSpace(s.APIBaseURL) != "" &&
		strings.TrimSpace(s.APIKey) != "" &&
		strings.TrimSpace(s.SiteID) != ""
}

// CheckReady returns a configuration error when no remote call may be made
func (s Settings) CheckReady() error {
	if !s.Enabled {
		return ErrIntegrationDisabled
	}
	if !s.HasCredentials() {
		return ErrCredentialsIncomplete
	}
	return nil
}

// Timeout returns the per-call timeout
func (s Settings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryPolicy returns the retry policy configured by the settings
func (s Settings) RetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = s.RetryAttempts
	if s.RetryBaseDelay > 0 {
		p.BaseDelay = s.RetryBaseDelay
	}
	if s.MaxRetryDelay > 0 {
		p.MaxDelay = s.MaxRetryDelay
	}
	return p
}

// EffectiveBatchSize returns the bulk batch size clamped to [1, MaxBulkBatchSize]
func (s Settings) EffectiveBatchSize() int {
	switch {
	case s.BulkBatchSize <= 0:
		return DefaultBulkBatchSize
	case s.BulkBatchSize > MaxBulkBatchSize:
		return MaxBulkBatchSize
	default:
		return s.BulkBatchSize
	}
}

// WebhookVerificationRequired reports whether inbound webhooks must be signed
func (s Settings) WebhookVerificationRequired() bool {
	return s.WebhookSecret != "" || !s.AllowUnsignedWebhooks
}

// Redacted returns a copy safe for logs and API responses
func (s Settings) Redacted() Settings {
	c := s
	if c.APIKey != "" {
		c.APIKey = "********"
	}
	if c.WebhookSecret != "" {
		c.WebhookSecret = "********"
	}
	return c
}

// SettingsRepository persists the single settings record
type SettingsRepository interface {
	// Load returns the stored settings, ErrSettingsNotFound if none exist
	Load(ctx context.Context) (*Settings, error)
	// Save stores the settings
	Save(ctx context.Context, settings *Settings) error
}

// SettingsCache caches the settings between units of work
type SettingsCache interface {
	Get(ctx context.Context) (*Settings, bool)
	Set(ctx context.Context, settings *Settings, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
