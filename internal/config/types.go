package config

// Config is the process-level configuration. Trading settings seeded from
// here apply only to a brand-new ledger; afterwards the ledger document is
// the source of truth and chat/API updates win.
type Config struct {
	// Path is the file the config was loaded from; set by Load, used by the
	// hot reload watcher.
	Path string `mapstructure:"-"`

	App      AppConfig      `mapstructure:"app"`
	Store    StoreConfig    `mapstructure:"store"`
	AI       AIConfig       `mapstructure:"ai"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Research ResearchConfig `mapstructure:"research"`
	Market   MarketConfig   `mapstructure:"market"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Trading  TradingConfig  `mapstructure:"trading"`
}

type AppConfig struct {
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	HTTPAddr  string `mapstructure:"http_addr"`
	LogPath   string `mapstructure:"log_path"`
	ModelLog  string `mapstructure:"model_log_path"`
	ModelDump bool   `mapstructure:"model_dump_payload"`
}

type StoreConfig struct {
	LedgerPath  string `mapstructure:"ledger_path"`
	ScanLogPath string `mapstructure:"scan_log_path"`
}

type AIConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ExecutorConfig points at the external action-execution service.
type ExecutorConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ResearchConfig points at the asynchronous research/trading API.
type ResearchConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	DeadlineSeconds int    `mapstructure:"deadline_seconds"`
}

type MarketConfig struct {
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// TradingConfig seeds the risk settings of a fresh ledger.
type TradingConfig struct {
	MaxMarketCap     float64 `mapstructure:"max_market_cap"`
	MaxBuyAmount     string  `mapstructure:"max_buy_amount"`
	TakeProfitPct    float64 `mapstructure:"take_profit_pct"`
	StopLossPct      float64 `mapstructure:"stop_loss_pct"`
	ScanIntervalMin  int     `mapstructure:"scan_interval_min"`
	MaxOpenPositions int     `mapstructure:"max_open_positions"`
	AutoTradeEnabled bool    `mapstructure:"auto_trade_enabled"`
}
