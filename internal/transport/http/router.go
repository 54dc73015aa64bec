package adminhttp

import (
	"net/http"
	"strconv"
	"strings"

	"pilot/internal/brain"
	"pilot/internal/config"
	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/scheduler"
	"pilot/internal/store/scanlog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Router serves ledger queries and the few mutating admin operations.
type Router struct {
	Store  *ledger.Store
	Runner *scheduler.Runner
	Scans  *scanlog.Store
	Brain  *brain.Brain
	Cfg    *config.Config
}

// NewRouter constructs the admin API router. Brain may be nil when the model
// client is unconfigured; the chat endpoint then reports the feature as
// disabled.
func NewRouter(store *ledger.Store, runner *scheduler.Runner, scans *scanlog.Store, b *brain.Brain, cfg *config.Config) *Router {
	return &Router{Store: store, Runner: runner, Scans: scans, Brain: b, Cfg: cfg}
}

// Register mounts the /api routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/positions", r.handlePositions)
	group.GET("/trades", r.handleTrades)
	group.GET("/performance", r.handlePerformance)
	group.GET("/settings", r.handleGetSettings)
	group.PUT("/settings", r.handleUpdateSettings)
	group.POST("/autotrade", r.handleAutoTrade)
	group.POST("/scan", r.handleManualScan)
	group.GET("/scans", r.handleScans)
	group.GET("/config", r.handleConfig)
	group.POST("/chat", r.handleChat)
}

type chatRequest struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// handleChat is a thin shim for chat transports without a native bridge.
// It feeds the same per-message loop the conversational frontends use.
func (r *Router) handleChat(c *gin.Context) {
	if r.Brain == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat disabled: model credentials not configured"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if strings.TrimSpace(req.ChatID) == "" {
		req.ChatID = "admin"
	}
	reply, err := r.Brain.HandleMessage(c.Request.Context(), req.ChatID, req.Name, req.Text)
	if err != nil {
		logger.Errorf("[api] chat failed ip=%s chat=%s err=%v", c.ClientIP(), req.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (r *Router) handleStatus(c *gin.Context) {
	snap := r.Store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"autotrade_enabled": snap.Settings.AutoTradeEnabled,
		"open_positions":    len(ledger.OpenPositions(snap)),
		"total_trades":      snap.TotalTrades,
		"scan_in_flight":    r.Runner.Busy(),
	})
}

func (r *Router) handlePositions(c *gin.Context) {
	snap := r.Store.Snapshot()
	c.JSON(http.StatusOK, gin.H{"positions": ledger.OpenPositions(snap)})
}

func (r *Router) handleTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 {
		limit = ledger.DefaultHistoryLimit
	}
	if limit > 500 {
		limit = 500
	}
	snap := r.Store.Snapshot()
	trades := ledger.TradeHistory(snap, limit)
	c.JSON(http.StatusOK, gin.H{"trades": trades, "total_count": snap.TotalTrades})
}

func (r *Router) handlePerformance(c *gin.Context) {
	snap := r.Store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"total_trades": snap.TotalTrades,
		"win_rate":     snap.WinRate,
		"total_pnl":    snap.TotalPnL,
		"summary":      ledger.PerformanceSummary(snap),
	})
}

func (r *Router) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": r.Store.Settings()})
}

// settingsPatch carries a partial settings update. Absent fields keep their
// current value.
type settingsPatch struct {
	MaxMarketCap     *float64 `json:"maxMarketCap"`
	MaxBuyAmount     *string  `json:"maxBuyAmount"`
	TakeProfitPct    *float64 `json:"takeProfitPct"`
	StopLossPct      *float64 `json:"stopLossPct"`
	ScanIntervalMin  *int     `json:"scanIntervalMin"`
	MaxOpenPositions *int     `json:"maxOpenPositions"`
	AutoTradeEnabled *bool    `json:"autoTradeEnabled"`
}

func (r *Router) handleUpdateSettings(c *gin.Context) {
	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var buy decimal.Decimal
	if patch.MaxBuyAmount != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*patch.MaxBuyAmount))
		if err != nil || parsed.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maxBuyAmount"})
			return
		}
		buy = parsed
	}
	if patch.StopLossPct != nil && (*patch.StopLossPct <= 0 || *patch.StopLossPct >= 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stopLossPct must be in (0, 100)"})
		return
	}
	if patch.TakeProfitPct != nil && *patch.TakeProfitPct <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "takeProfitPct must be positive"})
		return
	}
	if patch.ScanIntervalMin != nil && *patch.ScanIntervalMin < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scanIntervalMin must be >= 1"})
		return
	}
	if patch.MaxOpenPositions != nil && *patch.MaxOpenPositions < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maxOpenPositions must be >= 1"})
		return
	}
	err := r.Store.UpdateSettings(func(s *ledger.Settings) {
		if patch.MaxMarketCap != nil {
			s.MaxMarketCap = *patch.MaxMarketCap
		}
		if patch.MaxBuyAmount != nil {
			s.MaxBuyAmount = buy
		}
		if patch.TakeProfitPct != nil {
			s.TakeProfitPct = *patch.TakeProfitPct
		}
		if patch.StopLossPct != nil {
			s.StopLossPct = *patch.StopLossPct
		}
		if patch.ScanIntervalMin != nil {
			s.ScanIntervalMin = *patch.ScanIntervalMin
		}
		if patch.MaxOpenPositions != nil {
			s.MaxOpenPositions = *patch.MaxOpenPositions
		}
		if patch.AutoTradeEnabled != nil {
			s.AutoTradeEnabled = *patch.AutoTradeEnabled
		}
	})
	if err != nil {
		logger.Errorf("[api] settings update failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] settings updated ip=%s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"settings": r.Store.Settings()})
}

type autoTradeRequest struct {
	Enabled bool `json:"enabled"`
}

func (r *Router) handleAutoTrade(c *gin.Context) {
	var req autoTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.Runner.ToggleAutoTrade(req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] autotrade toggled ip=%s enabled=%v", c.ClientIP(), req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled})
}

func (r *Router) handleManualScan(c *gin.Context) {
	report, err := r.Runner.ScanNow(c.Request.Context())
	if err != nil {
		logger.Warnf("[api] manual scan failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (r *Router) handleScans(c *gin.Context) {
	if r.Scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan log store unavailable"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	recs, err := r.Scans.Recent(limit)
	if err != nil {
		logger.Errorf("[api] scan history failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": recs})
}

// handleConfig renders the effective configuration with secrets redacted.
func (r *Router) handleConfig(c *gin.Context) {
	if r.Cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "config unavailable"})
		return
	}
	out, err := yaml.Marshal(redactConfig(r.Cfg))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/yaml; charset=utf-8", out)
}

func redactConfig(cfg *config.Config) map[string]any {
	return map[string]any{
		"app": map[string]any{
			"env":       cfg.App.Env,
			"log_level": cfg.App.LogLevel,
			"http_addr": cfg.App.HTTPAddr,
		},
		"store": map[string]any{
			"ledger_path":   cfg.Store.LedgerPath,
			"scan_log_path": cfg.Store.ScanLogPath,
		},
		"ai": map[string]any{
			"api_url": cfg.AI.APIURL,
			"api_key": redactSecret(cfg.AI.APIKey),
			"model":   cfg.AI.Model,
		},
		"executor": map[string]any{
			"base_url":        cfg.Executor.BaseURL,
			"timeout_seconds": cfg.Executor.TimeoutSeconds,
		},
		"research": map[string]any{
			"base_url":         cfg.Research.BaseURL,
			"deadline_seconds": cfg.Research.DeadlineSeconds,
		},
		"notify": map[string]any{
			"telegram": map[string]any{
				"enabled":   cfg.Notify.Telegram.Enabled,
				"bot_token": redactSecret(cfg.Notify.Telegram.BotToken),
			},
		},
	}
}

func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "***"
	}
	return s[:3] + "..." + s[len(s)-3:]
}
