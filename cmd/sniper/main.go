package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"token-sniper/internal/alert"
	"token-sniper/internal/config"
	"token-sniper/internal/core"
	"token-sniper/internal/engine"
	"token-sniper/internal/exchange/mexc"
	"token-sniper/internal/state"
)

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

func run() int {
	var (
		symbol     string
		budgetRaw  string
		typeRaw    string
		priceRaw   string
		tpRaw      string
		delaySec   float64
		configPath string
		envPath    string
		stateDir   string
	)
	flag.StringVar(&symbol, "symbol", "", "symbol, e.g. XYZUSDT (required)")
	flag.StringVar(&budgetRaw, "budget", "", "quote-currency budget to spend (required)")
	flag.StringVar(&typeRaw, "type", "", "order type: MARKET or LIMIT (required)")
	flag.StringVar(&priceRaw, "price", "", "limit price, required for LIMIT orders")
	flag.StringVar(&tpRaw, "tp", "", "take-profit percentage, e.g. 5 for +5%")
	flag.Float64Var(&delaySec, "delay", 0.1, "price poll retry delay in seconds")
	flag.StringVar(&configPath, "config", "", "optional config yaml path")
	flag.StringVar(&envPath, "env", ".env", "env file with MEXC_API_KEY/MEXC_API_SECRET")
	flag.StringVar(&stateDir, "state-dir", "", "optional dir for the run status snapshot and instance lock")
	flag.Parse()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	}
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fatal(err.Error())
		}
		cfg = loaded
	}

	intent, err := buildIntent(symbol, budgetRaw, typeRaw, priceRaw, tpRaw)
	if err != nil {
		fatal(err.Error())
	}
	if cfg.Trade.MaxBudget.Cmp(decimal.Zero) > 0 && intent.Budget.Cmp(cfg.Trade.MaxBudget.Decimal) > 0 {
		fatal(fmt.Sprintf("budget %s exceeds configured max_budget %s", intent.Budget, cfg.Trade.MaxBudget))
	}
	if delaySec <= 0 {
		fatal("delay must be > 0")
	}

	client, err := mexc.NewClient(cfg.Exchange)
	if err != nil {
		fatal(err.Error())
	}

	var runState *state.Store
	var startedAt time.Time
	if stateDir != "" {
		runState, err = state.New(stateDir)
		if err != nil {
			fatal(err.Error())
		}
		lock, err := state.AcquireInstanceLock(stateDir)
		if err != nil {
			fatal(err.Error())
		}
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				fmt.Fprintf(os.Stderr, "release instance lock failed: %v\n", releaseErr)
			}
		}()
		startedAt = time.Now().UTC()
		if err := runState.SaveStatus(state.RunStatus{
			Symbol:    intent.Symbol,
			State:     state.StateRunning,
			PID:       os.Getpid(),
			StartedAt: startedAt,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "save run status failed: %v\n", err)
		}
	}

	alerts := buildAlertManager(cfg, intent.Symbol)
	if alerts != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := alerts.Close(closeCtx); err != nil {
				fmt.Fprintf(os.Stderr, "close alert manager failed: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sniper := &engine.Sniper{
		Exchange:         client,
		Intent:           intent,
		PriceRetryDelay:  time.Duration(delaySec * float64(time.Second)),
		FillPollInterval: time.Duration(cfg.Trade.FillPollIntervalSec) * time.Second,
		MaxPriceWait:     time.Duration(cfg.Trade.MaxPriceWaitSec) * time.Second,
		MaxFillWait:      time.Duration(cfg.Trade.MaxFillWaitSec) * time.Second,
		Alerts:           alerts,
	}

	fmt.Printf("starting sniper symbol=%s type=%s budget=%s tp=%s delay=%.3fs\n",
		intent.Symbol, intent.Type, intent.Budget, tpOrNone(intent), delaySec)

	report, runErr := sniper.Run(ctx)
	recordRun(runState, intent.Symbol, startedAt, report, runErr)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Println("sniper canceled")
		} else {
			fmt.Fprintln(os.Stderr, describeFailure(runErr))
		}
		return 1
	}

	fmt.Printf("buy filled symbol=%s order_id=%s qty=%s entry_price=%s\n",
		intent.Symbol, report.Buy.ID, report.Buy.Qty, report.EntryPrice)
	if report.TakeProfit != nil {
		fmt.Printf("take-profit placed order_id=%s price=%s qty=%s\n",
			report.TakeProfit.ID, report.TakeProfit.Price, report.TakeProfit.Qty)
	}
	return 0
}

func recordRun(runState *state.Store, symbol string, startedAt time.Time, report engine.Report, runErr error) {
	if runState == nil {
		return
	}
	status := state.RunStatus{
		Symbol:      symbol,
		State:       state.StateDone,
		PID:         os.Getpid(),
		EntryPrice:  report.EntryPrice,
		BuyOrderID:  report.Buy.ID,
		BuyClientID: report.Buy.ClientID,
		StartedAt:   startedAt,
	}
	if runErr != nil {
		status.State = state.StateFailed
		status.LastError = runErr.Error()
	}
	if report.TakeProfit != nil {
		status.TakeProfitID = report.TakeProfit.ID
	}
	if err := runState.SaveStatus(status); err != nil {
		fmt.Fprintf(os.Stderr, "save run status failed: %v\n", err)
	}
}

func buildIntent(symbol, budgetRaw, typeRaw, priceRaw, tpRaw string) (core.Intent, error) {
	intent := core.Intent{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Type:   core.OrderType(strings.ToUpper(strings.TrimSpace(typeRaw))),
	}
	if intent.Symbol == "" {
		return core.Intent{}, errors.New("-symbol is required")
	}
	if budgetRaw == "" {
		return core.Intent{}, errors.New("-budget is required")
	}
	budget, err := decimal.NewFromString(budgetRaw)
	if err != nil || budget.Cmp(decimal.Zero) <= 0 {
		return core.Intent{}, fmt.Errorf("-budget must be a positive number, got %q", budgetRaw)
	}
	intent.Budget = budget
	switch intent.Type {
	case core.Market:
		if priceRaw != "" {
			return core.Intent{}, errors.New("-price is only valid for LIMIT orders")
		}
	case core.Limit:
		if priceRaw == "" {
			return core.Intent{}, errors.New("-price is required for LIMIT orders")
		}
		price, err := decimal.NewFromString(priceRaw)
		if err != nil || price.Cmp(decimal.Zero) <= 0 {
			return core.Intent{}, fmt.Errorf("-price must be a positive number, got %q", priceRaw)
		}
		intent.LimitPrice = price
	default:
		return core.Intent{}, errors.New("-type must be MARKET or LIMIT")
	}
	if tpRaw != "" {
		tp, err := decimal.NewFromString(tpRaw)
		if err != nil || tp.Cmp(decimal.Zero) <= 0 {
			return core.Intent{}, fmt.Errorf("-tp must be a positive percentage, got %q", tpRaw)
		}
		intent.TakeProfitPct = tp
	}
	return intent, nil
}

func describeFailure(err error) string {
	switch {
	case errors.Is(err, core.ErrSymbolNotFound):
		return fmt.Sprintf("symbol not found on exchange: %v", err)
	case errors.Is(err, core.ErrBudgetTooSmall):
		return fmt.Sprintf("budget too small for this instrument: %v", err)
	case errors.Is(err, core.ErrNoOrderID):
		return fmt.Sprintf("order submission rejected by exchange: %v", err)
	case errors.Is(err, engine.ErrWaitDeadlineExceeded):
		return err.Error()
	default:
		return err.Error()
	}
}

func buildAlertManager(cfg config.Config, symbol string) *alert.Manager {
	tg := cfg.Observability.Telegram
	if !tg.Enabled {
		return nil
	}
	notifier := alert.NewTelegramNotifier(
		tg.BotToken,
		tg.ChatID,
		tg.APIBaseURL,
		time.Duration(tg.TimeoutSec)*time.Second,
	)
	return alert.NewManager(symbol, notifier)
}

func tpOrNone(intent core.Intent) string {
	if intent.TakeProfitPct.Cmp(decimal.Zero) <= 0 {
		return "none"
	}
	return intent.TakeProfitPct.String() + "%"
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
