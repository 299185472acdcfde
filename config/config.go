package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Tipos de matching soportados por el simulador.
const (
	MatchingCurrentBarClose = "CURRENT_BAR_CLOSE"
	MatchingNextBarOpen     = "NEXT_BAR_OPEN"
)

// Frecuencias de simulación.
const (
	FrequencyDaily  = "1d"
	FrequencyMinute = "1m"
	FrequencyTick   = "tick"
)

// Tipos de cuenta.
const (
	AccountStock     = "STOCK"
	AccountFuture    = "FUTURE"
	AccountBenchmark = "BENCHMARK"
)

// Config es la configuración completa de una simulación.
type Config struct {
	Base      BaseConfig      `yaml:"base"`
	Validator ValidatorConfig `yaml:"validator"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// BaseConfig controla el intervalo histórico, las cuentas y el matching.
type BaseConfig struct {
	StartDate          string   `yaml:"start_date"` // YYYY-MM-DD
	EndDate            string   `yaml:"end_date"`
	MatchingType       string   `yaml:"matching_type"` // CURRENT_BAR_CLOSE | NEXT_BAR_OPEN
	Frequency          string   `yaml:"frequency"`     // 1d | 1m | tick
	AccountList        []string `yaml:"account_list"`  // subset de {STOCK, FUTURE}
	StockStartingCash  float64  `yaml:"stock_starting_cash"`
	FutureStartingCash float64  `yaml:"future_starting_cash"`
	Benchmark          string   `yaml:"benchmark"` // instrument id, o vacío
	HandleSplit        bool     `yaml:"handle_split"`
}

// ValidatorConfig controla las políticas de validación pre-trade y de matching.
type ValidatorConfig struct {
	BarLimit                  *bool    `yaml:"bar_limit"` // default true
	CashReturnByStockDelisted bool     `yaml:"cash_return_by_stock_delisted"`
	T1ExemptIDs               []string `yaml:"t1_exempt_ids"` // ETFs exentos de T+1
}

// MatcherConfig contiene los parámetros del motor de matching.
type MatcherConfig struct {
	VolumePercent float64 `yaml:"volume_percent"` // default 0.25
}

// StorageConfig controla dónde se persiste el ledger.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba el conjunto cerrado de valores permitidos.
func (c *Config) Validate() error {
	switch c.Base.MatchingType {
	case MatchingCurrentBarClose, MatchingNextBarOpen:
	default:
		return fmt.Errorf("config.Validate: unknown matching_type %q", c.Base.MatchingType)
	}
	switch c.Base.Frequency {
	case FrequencyDaily, FrequencyMinute, FrequencyTick:
	default:
		return fmt.Errorf("config.Validate: unknown frequency %q", c.Base.Frequency)
	}
	for _, a := range c.Base.AccountList {
		if a != AccountStock && a != AccountFuture {
			return fmt.Errorf("config.Validate: unknown account type %q", a)
		}
	}
	if _, err := c.StartDate(); err != nil {
		return err
	}
	if _, err := c.EndDate(); err != nil {
		return err
	}
	return nil
}

// StartDate devuelve la fecha inicial como time.Time.
func (c *Config) StartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Base.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: parse start_date %q: %w", c.Base.StartDate, err)
	}
	return t, nil
}

// EndDate devuelve la fecha final como time.Time.
func (c *Config) EndDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Base.EndDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: parse end_date %q: %w", c.Base.EndDate, err)
	}
	return t, nil
}

// BarLimitEnabled devuelve la política limit-up/limit-down (default true).
func (v ValidatorConfig) BarLimitEnabled() bool {
	return v.BarLimit == nil || *v.BarLimit
}

// IsT1Exempt reports whether the instrument is exempt from the T+1 lock.
func (v ValidatorConfig) IsT1Exempt(instrumentID string) bool {
	for _, id := range v.T1ExemptIDs {
		if id == instrumentID {
			return true
		}
	}
	return false
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BACKSIM_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// SetDefaults asegura que los valores requeridos tengan valores sensatos.
func SetDefaults(cfg *Config) {
	if cfg.Base.MatchingType == "" {
		cfg.Base.MatchingType = MatchingCurrentBarClose
	}
	if cfg.Base.Frequency == "" {
		cfg.Base.Frequency = FrequencyDaily
	}
	if len(cfg.Base.AccountList) == 0 {
		cfg.Base.AccountList = []string{AccountStock}
	}
	if cfg.Base.StockStartingCash <= 0 {
		cfg.Base.StockStartingCash = 100000
	}
	if cfg.Base.FutureStartingCash <= 0 {
		cfg.Base.FutureStartingCash = 100000
	}
	if cfg.Matcher.VolumePercent <= 0 {
		cfg.Matcher.VolumePercent = 0.25
	}
	if cfg.Validator.T1ExemptIDs == nil {
		// ETFs cross-border: cotizan en XSHG pero liquidan T+0.
		cfg.Validator.T1ExemptIDs = []string{
			"510900.XSHG", "513030.XSHG", "513100.XSHG", "513500.XSHG",
		}
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backsim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Default devuelve una configuración lista para tests y usos programáticos.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}
