package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot. Inmutable tras Load.
type Config struct {
	Mode     string         `yaml:"mode"` // SHADOW | LIVE
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Kalshi   KalshiConfig   `yaml:"kalshi"`
	Engine   EngineConfig   `yaml:"engine"`
	Retry    RetryConfig    `yaml:"retry"`
	Feed     FeedConfig     `yaml:"feed"`
	Storage  StorageConfig  `yaml:"storage"`
	TradeLog TradeLogConfig `yaml:"trade_log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig contiene los parámetros de edge, filtros y sizing.
type StrategyConfig struct {
	EdgeThreshold         float64            `yaml:"edge_threshold"`
	KellyFactor           float64            `yaml:"kelly_factor"`
	MinMarketVolume       float64            `yaml:"min_market_volume"`
	MaxSpread             float64            `yaml:"max_spread"`
	MinTimeToStartMinutes float64            `yaml:"min_time_to_start_minutes"`
	SlippageTolerance     float64            `yaml:"slippage_tolerance"`
	ResearchWeights       map[string]float64 `yaml:"research_weights"`       // HIGH/MEDIUM/LOW/NONE
	ConfidenceMultipliers map[string]float64 `yaml:"confidence_multipliers"` // opcional, default 1.0
}

// RiskConfig son los caps como fracción del bankroll.
type RiskConfig struct {
	MaxPerBetPct    float64 `yaml:"max_per_bet_pct"`
	MaxPerGamePct   float64 `yaml:"max_per_game_pct"`
	MaxPerTeamPct   float64 `yaml:"max_per_team_pct"`
	MaxDailyRiskPct float64 `yaml:"max_daily_risk_pct"`
	// ShadowBankroll es el bankroll usado en SHADOW (no hay cuenta real).
	ShadowBankroll float64 `yaml:"shadow_bankroll"`
}

// KalshiConfig contiene las credenciales y el base URL del venue.
type KalshiConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"` // clave privada RSA en PEM
	BaseURL   string `yaml:"base_url"`
}

// EngineConfig controla el ciclo y la concurrencia.
type EngineConfig struct {
	PollIntervalSeconds        int `yaml:"poll_interval_seconds"`
	CollaboratorTimeoutSeconds int `yaml:"collaborator_timeout_seconds"`
	FetchWorkers               int `yaml:"fetch_workers"`
	MaxConcurrentOrders        int `yaml:"max_concurrent_orders"`
	ShutdownGraceSeconds       int `yaml:"shutdown_grace_seconds"`
}

// RetryConfig es la política de reintentos frente al venue.
type RetryConfig struct {
	MaxAttempts           int     `yaml:"max_attempts"`
	BaseDelayMillis       int     `yaml:"base_delay_ms"`
	MaxDelayMillis        int     `yaml:"max_delay_ms"`
	Jitter                float64 `yaml:"jitter"`
	AttemptTimeoutSeconds int     `yaml:"attempt_timeout_seconds"`
}

// FeedConfig apunta al snapshot de mercados y estimaciones.
type FeedConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// TradeLogConfig controla el log JSON de trade records.
type TradeLogConfig struct {
	Path       string `yaml:"path"` // vacío = deshabilitado
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // opcional, rotado con lumberjack
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
// Si path está vacío se usan solo env + defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// PollInterval devuelve el intervalo entre ciclos.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalSeconds) * time.Second
}

// Live indica si el bot opera con dinero real.
func (c *Config) Live() bool {
	return c.Mode == "LIVE"
}

// Validate aplica los rangos permitidos.
func (c *Config) Validate() error {
	var errs []error
	if c.Mode != "SHADOW" && c.Mode != "LIVE" {
		errs = append(errs, fmt.Errorf("invalid MODE %q: must be SHADOW or LIVE", c.Mode))
	}
	if c.Mode == "LIVE" && (c.Kalshi.APIKey == "" || c.Kalshi.APISecret == "") {
		errs = append(errs, errors.New("KALSHI_API_KEY and KALSHI_API_SECRET required for LIVE mode"))
	}
	if !(c.Strategy.EdgeThreshold > 0 && c.Strategy.EdgeThreshold < 1) {
		errs = append(errs, errors.New("EDGE_THRESHOLD must be in (0, 1)"))
	}
	if !inUnit(c.Strategy.KellyFactor) {
		errs = append(errs, errors.New("KELLY_FACTOR must be in (0, 1]"))
	}
	if !inUnit(c.Risk.MaxPerBetPct) {
		errs = append(errs, errors.New("MAX_PER_BET_PCT must be in (0, 1]"))
	}
	if !inUnit(c.Risk.MaxPerGamePct) {
		errs = append(errs, errors.New("MAX_PER_GAME_PCT must be in (0, 1]"))
	}
	if !inUnit(c.Risk.MaxPerTeamPct) {
		errs = append(errs, errors.New("MAX_PER_TEAM_PCT must be in (0, 1]"))
	}
	if !inUnit(c.Risk.MaxDailyRiskPct) {
		errs = append(errs, errors.New("MAX_DAILY_RISK_PCT must be in (0, 1]"))
	}
	if c.Strategy.SlippageTolerance < 0 || c.Strategy.SlippageTolerance >= 1 {
		errs = append(errs, errors.New("SLIPPAGE_TOLERANCE must be in [0, 1)"))
	}
	for k := range c.Strategy.ResearchWeights {
		if !validConfidence(k) {
			errs = append(errs, fmt.Errorf("research_weights: unknown confidence %q", k))
		}
	}
	for k := range c.Strategy.ConfidenceMultipliers {
		if !validConfidence(k) {
			errs = append(errs, fmt.Errorf("confidence_multipliers: unknown confidence %q", k))
		}
	}
	return errors.Join(errs...)
}

func inUnit(v float64) bool { return v > 0 && v <= 1 }

func validConfidence(s string) bool {
	switch s {
	case "HIGH", "MEDIUM", "LOW", "NONE":
		return true
	}
	return false
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
// Un valor no numérico en una variable numérica es un error.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *float64) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid number %q", name, v))
			return
		}
		*dst = f
	}
	integer := func(name string, dst *int) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", name, v))
			return
		}
		*dst = n
	}

	str("MODE", &cfg.Mode)
	cfg.Mode = strings.ToUpper(strings.TrimSpace(cfg.Mode))

	num("EDGE_THRESHOLD", &cfg.Strategy.EdgeThreshold)
	num("KELLY_FACTOR", &cfg.Strategy.KellyFactor)
	num("MIN_MARKET_VOLUME", &cfg.Strategy.MinMarketVolume)
	num("MAX_SPREAD", &cfg.Strategy.MaxSpread)
	num("MIN_TIME_TO_START_MINUTES", &cfg.Strategy.MinTimeToStartMinutes)
	num("SLIPPAGE_TOLERANCE", &cfg.Strategy.SlippageTolerance)

	num("MAX_PER_BET_PCT", &cfg.Risk.MaxPerBetPct)
	num("MAX_PER_GAME_PCT", &cfg.Risk.MaxPerGamePct)
	num("MAX_PER_TEAM_PCT", &cfg.Risk.MaxPerTeamPct)
	num("MAX_DAILY_RISK_PCT", &cfg.Risk.MaxDailyRiskPct)
	num("SHADOW_BANKROLL", &cfg.Risk.ShadowBankroll)

	str("KALSHI_API_KEY", &cfg.Kalshi.APIKey)
	str("KALSHI_API_SECRET", &cfg.Kalshi.APISecret)
	str("KALSHI_BASE_URL", &cfg.Kalshi.BaseURL)

	integer("POLL_INTERVAL_SECONDS", &cfg.Engine.PollIntervalSeconds)
	str("FEED_PATH", &cfg.Feed.Path)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	str("METRICS_ADDR", &cfg.Metrics.Addr)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)

	return errors.Join(errs...)
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los caps y umbrales solo se rellenan si vienen a cero; un valor fuera de
// rango lo rechaza Validate.
func setDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "SHADOW"
	}

	s := &cfg.Strategy
	if s.EdgeThreshold == 0 {
		s.EdgeThreshold = 0.07
	}
	if s.KellyFactor == 0 {
		s.KellyFactor = 0.25
	}
	if s.MinMarketVolume == 0 {
		s.MinMarketVolume = 2000
	}
	if s.MaxSpread == 0 {
		s.MaxSpread = 0.08
	}
	if s.MinTimeToStartMinutes == 0 {
		s.MinTimeToStartMinutes = 5
	}
	if s.SlippageTolerance == 0 {
		s.SlippageTolerance = 0.02
	}

	r := &cfg.Risk
	if r.MaxPerBetPct == 0 {
		r.MaxPerBetPct = 0.02
	}
	if r.MaxPerGamePct == 0 {
		r.MaxPerGamePct = 0.05
	}
	if r.MaxPerTeamPct == 0 {
		r.MaxPerTeamPct = 0.08
	}
	if r.MaxDailyRiskPct == 0 {
		r.MaxDailyRiskPct = 0.10
	}
	if r.ShadowBankroll <= 0 {
		r.ShadowBankroll = 10000
	}

	if cfg.Kalshi.BaseURL == "" {
		cfg.Kalshi.BaseURL = "https://api.demo.kalshi.com/trade-api/v2"
	}

	e := &cfg.Engine
	if e.PollIntervalSeconds <= 0 {
		e.PollIntervalSeconds = 60
	}
	if e.CollaboratorTimeoutSeconds <= 0 {
		e.CollaboratorTimeoutSeconds = 10
	}
	if e.FetchWorkers <= 0 {
		e.FetchWorkers = 8
	}
	if e.MaxConcurrentOrders <= 0 {
		e.MaxConcurrentOrders = 4
	}
	if e.ShutdownGraceSeconds <= 0 {
		e.ShutdownGraceSeconds = 30
	}

	rt := &cfg.Retry
	if rt.MaxAttempts <= 0 {
		rt.MaxAttempts = 4
	}
	if rt.BaseDelayMillis <= 0 {
		rt.BaseDelayMillis = 500
	}
	if rt.MaxDelayMillis <= 0 {
		rt.MaxDelayMillis = 8000
	}
	if rt.Jitter <= 0 {
		rt.Jitter = 0.2
	}
	if rt.AttemptTimeoutSeconds <= 0 {
		rt.AttemptTimeoutSeconds = 10
	}

	if cfg.Feed.Path == "" {
		cfg.Feed.Path = "data/snapshot.yaml"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "edgebot.db"
	}
	if cfg.TradeLog.MaxSizeMB <= 0 {
		cfg.TradeLog.MaxSizeMB = 50
	}
	if cfg.TradeLog.MaxBackups <= 0 {
		cfg.TradeLog.MaxBackups = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
