package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"EditorialDesk/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "EDITORIAL_DESK_CONFIG"

	databaseDriverEnv    = "DATABASE_DRIVER"
	databaseDSNEnv       = "DATABASE_DSN"
	logLevelEnv          = "LOG_LEVEL"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramOperatorsEnv = "TELEGRAM_OPERATOR_IDS"
	telegramSecretEnv    = "TELEGRAM_WEBHOOK_SECRET"
	completionKeyEnv     = "COMPLETION_API_KEY"
	completionModelEnv   = "COMPLETION_MODEL"
	imagesKeyEnv         = "IMAGES_API_KEY"
	wpPasswordEnv        = "WP_APP_PASSWORD"
	redisURLEnv          = "REDIS_URL"
	natsURLEnv           = "NATS_URL"
	smtpPasswordEnv      = "SMTP_PASSWORD"
	deskSecretEnv        = "DESK_SECRET"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Completion   CompletionConfig   `yaml:"completion"`
	Images       ImagesConfig       `yaml:"images"`
	ContentStore ContentStoreConfig `yaml:"contentStore"`
	Sessions     SessionsConfig     `yaml:"sessions"`
	Events       EventsConfig       `yaml:"events"`
	Hooks        HooksConfig        `yaml:"hooks"`
	Mail         MailConfig         `yaml:"mail"`
	HTTP         HTTPConfig         `yaml:"http"`
	Scoring      ScoringConfig      `yaml:"scoring"`
	Queue        QueueConfig        `yaml:"queue"`
	Bot          BotConfig          `yaml:"bot"`
	Retention    RetentionConfig    `yaml:"retention"`
	Feeds        []FeedConfig       `yaml:"feeds"`
}

// DatabaseConfig selects the SQL dialect and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// SchedulerConfig defines when the periodic jobs fire.
type SchedulerConfig struct {
	Timezone string         `yaml:"timezone"`
	Jobs     []JobConfig    `yaml:"jobs"`
	location *time.Location `yaml:"-"`
}

// JobConfig overrides a single job schedule. At is "HH:MM", Weekday an English day name.
type JobConfig struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
	At      string `yaml:"at"`
	Weekday string `yaml:"weekday"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Descriptors converts job settings into scheduler descriptors.
func (s SchedulerConfig) Descriptors() []domain.JobDescriptor {
	out := make([]domain.JobDescriptor, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		at, ok := parseClock(job.At)
		if !ok {
			log.Printf("config: job %s has invalid time %q, using 06:00", job.Name, job.At)
			at = domain.ClockTime{Hour: 6}
		}
		enabled := true
		if job.Enabled != nil {
			enabled = *job.Enabled
		}
		out = append(out, domain.JobDescriptor{
			Name:       job.Name,
			Recurrence: domain.RecurrenceOf(job.Name),
			Enabled:    enabled,
			At:         at,
			Weekday:    parseWeekday(job.Weekday),
		})
	}
	return out
}

// TelegramConfig wires the bot and the public broadcast channel.
type TelegramConfig struct {
	BotToken      string        `yaml:"botToken"`
	OperatorIDs   []int64       `yaml:"operatorIds"`
	PublicChannel int64         `yaml:"publicChannel"`
	WebhookSecret string        `yaml:"webhookSecret"`
	Poll          bool          `yaml:"poll"`
	PollTimeout   int           `yaml:"pollTimeout"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CompletionConfig defines how to contact the language model.
type CompletionConfig struct {
	Provider     string        `yaml:"provider"`
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ImagesConfig configures generation and the URL-template renderers.
// Templates may contain {title} and {url}.
type ImagesConfig struct {
	GeneratorURL   string        `yaml:"generatorUrl"`
	APIKey         string        `yaml:"apiKey"`
	PlaceholderURL string        `yaml:"placeholderUrl"`
	ShareCardURL   string        `yaml:"shareCardUrl"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ContentStoreConfig points at the WordPress REST API.
type ContentStoreConfig struct {
	BaseURL         string        `yaml:"baseUrl"`
	Username        string        `yaml:"username"`
	AppPassword     string        `yaml:"appPassword"`
	AuthorID        int64         `yaml:"authorId"`
	DefaultCategory string        `yaml:"defaultCategory"`
	Timeout         time.Duration `yaml:"timeout"`
}

// SessionsConfig picks the operator session backend.
type SessionsConfig struct {
	Backend  string        `yaml:"backend"`
	TTL      time.Duration `yaml:"ttl"`
	RedisURL string        `yaml:"redisUrl"`
}

// EventsConfig configures secondary distribution over NATS.
type EventsConfig struct {
	NATSURL string `yaml:"natsUrl"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

// HooksConfig tunes post-publish hooks.
type HooksConfig struct {
	Disabled []string `yaml:"disabled"`
	Attempts int      `yaml:"attempts"`
}

// MailConfig enables the weekly digest e-mail.
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// HTTPConfig defines the listener of the HTTP surface.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
	Secret string `yaml:"secret"`
}

// ScoringConfig holds the batch selection heuristics.
type ScoringConfig struct {
	ExcerptWeight int           `yaml:"excerptWeight"`
	ImageWeight   int           `yaml:"imageWeight"`
	LinkWeight    int           `yaml:"linkWeight"`
	FreshWithin   time.Duration `yaml:"freshWithin"`
	FreshBonus    int           `yaml:"freshBonus"`
	RecentWithin  time.Duration `yaml:"recentWithin"`
	RecentBonus   int           `yaml:"recentBonus"`
	StaleBonus    int           `yaml:"staleBonus"`
	Window        time.Duration `yaml:"window"`
	Territory     string        `yaml:"territory"`
	Batch         int           `yaml:"batch"`
}

// QueueConfig sizes cold-queue drains.
type QueueConfig struct {
	DrainBatch int `yaml:"drainBatch"`
}

// BotConfig tunes the conversational router.
type BotConfig struct {
	ShortTextThreshold int `yaml:"shortTextThreshold"`
	RecentLimit        int `yaml:"recentLimit"`
}

// RetentionConfig bounds stored history.
type RetentionConfig struct {
	FeedDays int `yaml:"feedDays"`
	LogDays  int `yaml:"logDays"`
}

// FeedConfig describes a single syndication source with its scanner strategy.
type FeedConfig struct {
	Name      string            `yaml:"name"`
	Scanner   string            `yaml:"scanner"`
	URL       string            `yaml:"url"`
	Territory string            `yaml:"territory"`
	Options   map[string]string `yaml:"options"`
}

// Load reads .env, the YAML file named by EDITORIAL_DESK_CONFIG (if present) and env overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit file path; an empty path skips the file.
func LoadFrom(path string) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// HookEnabled reports whether the named post-publish hook is active.
func (c Config) HookEnabled(name string) bool {
	return c.Hooks.HookEnabled(name)
}

// HookEnabled reports whether name is absent from the disabled list.
func (h HooksConfig) HookEnabled(name string) bool {
	for _, d := range h.Disabled {
		if strings.EqualFold(d, name) {
			return false
		}
	}
	return true
}

// IsOperator reports whether id may drive the bot.
func (c Config) IsOperator(id int64) bool {
	for _, op := range c.Telegram.OperatorIDs {
		if op == id {
			return true
		}
	}
	return false
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Telegram.WebhookSecret, telegramSecretEnv)
	setString(&c.Completion.APIKey, completionKeyEnv)
	setString(&c.Completion.Model, completionModelEnv)
	setString(&c.Images.APIKey, imagesKeyEnv)
	setString(&c.ContentStore.AppPassword, wpPasswordEnv)
	setString(&c.Sessions.RedisURL, redisURLEnv)
	setString(&c.Events.NATSURL, natsURLEnv)
	setString(&c.Mail.Password, smtpPasswordEnv)
	setString(&c.HTTP.Secret, deskSecretEnv)

	if v := os.Getenv(telegramOperatorsEnv); v != "" {
		ids := parseIDs(v)
		if len(ids) > 0 {
			c.Telegram.OperatorIDs = ids
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Printf("config: skip operator id %q: %v", part, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseClock(v string) (domain.ClockTime, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return domain.ClockTime{}, false
	}
	return domain.ClockTime{Hour: t.Hour(), Minute: t.Minute()}, true
}

func parseWeekday(v string) time.Weekday {
	v = strings.ToLower(strings.TrimSpace(v))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || (len(v) >= 3 && strings.HasPrefix(name, v)) {
			return d
		}
	}
	return time.Monday
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
		base.Logging.Compress = override.Logging.Compress
	}
	mergeInt(&base.Logging.MaxSizeMB, override.Logging.MaxSizeMB)
	mergeInt(&base.Logging.MaxBackups, override.Logging.MaxBackups)
	mergeInt(&base.Logging.MaxAgeDays, override.Logging.MaxAgeDays)

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	base.Scheduler.Jobs = mergeJobs(base.Scheduler.Jobs, override.Scheduler.Jobs)

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if len(override.Telegram.OperatorIDs) > 0 {
		base.Telegram.OperatorIDs = override.Telegram.OperatorIDs
	}
	if override.Telegram.PublicChannel != 0 {
		base.Telegram.PublicChannel = override.Telegram.PublicChannel
	}
	if override.Telegram.WebhookSecret != "" {
		base.Telegram.WebhookSecret = override.Telegram.WebhookSecret
	}
	if override.Telegram.Poll {
		base.Telegram.Poll = true
	}
	mergeInt(&base.Telegram.PollTimeout, override.Telegram.PollTimeout)
	mergeDuration(&base.Telegram.Timeout, override.Telegram.Timeout)

	if override.Completion.Provider != "" {
		base.Completion.Provider = override.Completion.Provider
	}
	if override.Completion.Endpoint != "" {
		base.Completion.Endpoint = override.Completion.Endpoint
	}
	if override.Completion.Model != "" {
		base.Completion.Model = override.Completion.Model
	}
	if override.Completion.APIKey != "" {
		base.Completion.APIKey = override.Completion.APIKey
	}
	if override.Completion.SystemPrompt != "" {
		base.Completion.SystemPrompt = override.Completion.SystemPrompt
	}
	mergeDuration(&base.Completion.Timeout, override.Completion.Timeout)

	if override.Images.GeneratorURL != "" {
		base.Images.GeneratorURL = override.Images.GeneratorURL
	}
	if override.Images.APIKey != "" {
		base.Images.APIKey = override.Images.APIKey
	}
	if override.Images.PlaceholderURL != "" {
		base.Images.PlaceholderURL = override.Images.PlaceholderURL
	}
	if override.Images.ShareCardURL != "" {
		base.Images.ShareCardURL = override.Images.ShareCardURL
	}
	mergeDuration(&base.Images.Timeout, override.Images.Timeout)

	if override.ContentStore.BaseURL != "" {
		base.ContentStore.BaseURL = override.ContentStore.BaseURL
	}
	if override.ContentStore.Username != "" {
		base.ContentStore.Username = override.ContentStore.Username
	}
	if override.ContentStore.AppPassword != "" {
		base.ContentStore.AppPassword = override.ContentStore.AppPassword
	}
	if override.ContentStore.AuthorID != 0 {
		base.ContentStore.AuthorID = override.ContentStore.AuthorID
	}
	if override.ContentStore.DefaultCategory != "" {
		base.ContentStore.DefaultCategory = override.ContentStore.DefaultCategory
	}
	mergeDuration(&base.ContentStore.Timeout, override.ContentStore.Timeout)

	if override.Sessions.Backend != "" {
		base.Sessions.Backend = override.Sessions.Backend
	}
	if override.Sessions.RedisURL != "" {
		base.Sessions.RedisURL = override.Sessions.RedisURL
	}
	mergeDuration(&base.Sessions.TTL, override.Sessions.TTL)

	if override.Events.NATSURL != "" {
		base.Events.NATSURL = override.Events.NATSURL
	}
	if override.Events.Stream != "" {
		base.Events.Stream = override.Events.Stream
	}
	if override.Events.Subject != "" {
		base.Events.Subject = override.Events.Subject
	}

	if len(override.Hooks.Disabled) > 0 {
		base.Hooks.Disabled = override.Hooks.Disabled
	}
	mergeInt(&base.Hooks.Attempts, override.Hooks.Attempts)

	if override.Mail.Host != "" {
		base.Mail = override.Mail
		if base.Mail.Port == 0 {
			base.Mail.Port = 587
		}
	}

	if override.HTTP.Listen != "" {
		base.HTTP.Listen = override.HTTP.Listen
	}
	if override.HTTP.Secret != "" {
		base.HTTP.Secret = override.HTTP.Secret
	}

	mergeInt(&base.Scoring.ExcerptWeight, override.Scoring.ExcerptWeight)
	mergeInt(&base.Scoring.ImageWeight, override.Scoring.ImageWeight)
	mergeInt(&base.Scoring.LinkWeight, override.Scoring.LinkWeight)
	mergeInt(&base.Scoring.FreshBonus, override.Scoring.FreshBonus)
	mergeInt(&base.Scoring.RecentBonus, override.Scoring.RecentBonus)
	mergeInt(&base.Scoring.StaleBonus, override.Scoring.StaleBonus)
	mergeInt(&base.Scoring.Batch, override.Scoring.Batch)
	mergeDuration(&base.Scoring.FreshWithin, override.Scoring.FreshWithin)
	mergeDuration(&base.Scoring.RecentWithin, override.Scoring.RecentWithin)
	mergeDuration(&base.Scoring.Window, override.Scoring.Window)
	if override.Scoring.Territory != "" {
		base.Scoring.Territory = override.Scoring.Territory
	}

	mergeInt(&base.Queue.DrainBatch, override.Queue.DrainBatch)
	mergeInt(&base.Bot.ShortTextThreshold, override.Bot.ShortTextThreshold)
	mergeInt(&base.Bot.RecentLimit, override.Bot.RecentLimit)
	mergeInt(&base.Retention.FeedDays, override.Retention.FeedDays)
	mergeInt(&base.Retention.LogDays, override.Retention.LogDays)

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func mergeJobs(base, override []JobConfig) []JobConfig {
	out := make([]JobConfig, len(base))
	copy(out, base)
	for _, o := range override {
		found := false
		for i := range out {
			if out[i].Name != o.Name {
				continue
			}
			found = true
			if o.Enabled != nil {
				out[i].Enabled = o.Enabled
			}
			if o.At != "" {
				out[i].At = o.At
			}
			if o.Weekday != "" {
				out[i].Weekday = o.Weekday
			}
		}
		if !found {
			log.Printf("config: ignoring unknown job %q", o.Name)
		}
	}
	return out
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// Default returns the built-in configuration without file or env overrides.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:editorialdesk.db"},
		Logging:  LoggingConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30, Compress: true},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			location: tz,
			Jobs: []JobConfig{
				{Name: domain.JobDailyRewrite, At: "07:00"},
				{Name: domain.JobColdDrain, At: "09:00"},
				{Name: domain.JobTopicResearch, At: "05:30"},
				{Name: domain.JobSourceDiscovery, At: "04:00", Weekday: "sunday"},
				{Name: domain.JobWeeklySummary, At: "18:00", Weekday: "friday"},
			},
		},
		Telegram: TelegramConfig{PollTimeout: 30, Timeout: 15 * time.Second},
		Completion: CompletionConfig{
			Provider:     "openai",
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a news editor who rewrites source material into original articles.",
			Timeout:      60 * time.Second,
		},
		Images: ImagesConfig{
			PlaceholderURL: "https://placehold.co/1200x630/png?text={title}",
			Timeout:        60 * time.Second,
		},
		ContentStore: ContentStoreConfig{Timeout: 30 * time.Second, AuthorID: 1},
		Sessions:     SessionsConfig{Backend: "memory", TTL: 10 * time.Minute},
		Events:       EventsConfig{Stream: "EDITORIAL", Subject: "editorial.published"},
		Hooks:        HooksConfig{Attempts: 3},
		HTTP:         HTTPConfig{Listen: ":8080"},
		Scoring: ScoringConfig{
			ExcerptWeight: 2,
			ImageWeight:   1,
			LinkWeight:    1,
			FreshWithin:   6 * time.Hour,
			FreshBonus:    3,
			RecentWithin:  12 * time.Hour,
			RecentBonus:   2,
			StaleBonus:    1,
			Window:        24 * time.Hour,
			Batch:         5,
		},
		Queue:     QueueConfig{DrainBatch: 3},
		Bot:       BotConfig{ShortTextThreshold: 200, RecentLimit: 5},
		Retention: RetentionConfig{FeedDays: 30, LogDays: 14},
	}
}
