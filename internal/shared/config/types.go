package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	OpsAddress   string `mapstructure:"ops_address"`
}

// StripeConfig configures the card-network gateway.
type StripeConfig struct {
	APIKey        string `mapstructure:"api_key"`
	APIBaseURL    string `mapstructure:"api_base_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// PaymeConfig configures the wallet JSON-RPC gateway.
// AuthMode selects how the inbound credential is digested before the
// constant-time comparison: "hmac" (HMAC-SHA256) or "md5".
type PaymeConfig struct {
	MerchantID string `mapstructure:"merchant_id"`
	APIKey     string `mapstructure:"api_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
	AuthMode   string `mapstructure:"auth_mode"`
}

// ClickConfig configures the two-phase gateway.
type ClickConfig struct {
	ServiceID  string `mapstructure:"service_id"`
	MerchantID string `mapstructure:"merchant_id"`
	SecretKey  string `mapstructure:"secret_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
}

// BillingConfig groups provider credentials and engine-wide knobs.
type BillingConfig struct {
	Stripe           StripeConfig `mapstructure:"stripe"`
	Payme            PaymeConfig  `mapstructure:"payme"`
	Click            ClickConfig  `mapstructure:"click"`
	GatewayTimeoutMS int          `mapstructure:"gateway_timeout_ms"`
	WebhookTolerance int          `mapstructure:"webhook_tolerance_seconds"`
	NotifyBaseURL    string       `mapstructure:"notify_base_url"`
}

func (b *BillingConfig) GatewayTimeout() time.Duration {
	if b.GatewayTimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.GatewayTimeoutMS) * time.Millisecond
}

func (b *BillingConfig) WebhookToleranceDuration() time.Duration {
	if b.WebhookTolerance <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(b.WebhookTolerance) * time.Second
}

type SchedulerConfig struct {
	ReconcileIntervalMinutes    int `mapstructure:"reconcile_interval_minutes"`
	WebhookRetryIntervalMinutes int `mapstructure:"webhook_retry_interval_minutes"`
	WebhookMaxRetries           int `mapstructure:"webhook_max_retries"`
}
