package web

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/vitos/signal_trader/internal/domain"
)

var (
	hundred         = decimal.NewFromInt(100)
	errMissingField = errors.New("missing field")
)

// parsePayload checks that body is a JSON object.
func parsePayload(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("payload is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, errors.New("payload is not a JSON object")
	}
	return root, nil
}

// decodeSignal maps an alert to a TradeSignal. Numeric strategy fields may
// arrive as JSON numbers or strings; omitted ones take defaults.
func decodeSignal(root gjson.Result, defaults SignalDefaults) (domain.TradeSignal, error) {
	strategy := root.Get("strategy")
	sig := domain.TradeSignal{
		Symbol:       strings.ToUpper(strings.TrimSpace(root.Get("ticker").String())),
		BaseCurrency: strings.ToUpper(strings.TrimSpace(root.Get("base_currency").String())),
		Side:         domain.Side(strings.ToUpper(strings.TrimSpace(strategy.Get("order_action").String()))),
		Market:       domain.Market(strings.ToUpper(strings.TrimSpace(strategy.Get("market").String()))),
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"ticker", sig.Symbol},
		{"base_currency", sig.BaseCurrency},
		{"strategy.order_action", string(sig.Side)},
		{"strategy.market", string(sig.Market)},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return domain.TradeSignal{}, fmt.Errorf("%w: %s", errMissingField, strings.Join(missing, ", "))
	}

	var err error
	if sig.Leverage, err = decimalField(strategy, "leverage", decimal.Zero); err != nil {
		return domain.TradeSignal{}, err
	}
	if sig.Leverage.IsNegative() {
		return domain.TradeSignal{}, fmt.Errorf("leverage %s must not be negative", sig.Leverage)
	}
	if sig.StopLossPct, err = decimalField(strategy, "stop_loss", defaults.StopLossPct); err != nil {
		return domain.TradeSignal{}, err
	}
	if sig.StopLossPct.IsNegative() || sig.StopLossPct.GreaterThanOrEqual(hundred) {
		return domain.TradeSignal{}, fmt.Errorf("stop_loss %s must be in [0, 100)", sig.StopLossPct)
	}
	if sig.StopLimitDiffPct, err = decimalField(strategy, "limit_price_difference", defaults.StopLimitGapPct); err != nil {
		return domain.TradeSignal{}, err
	}
	if sig.StopLimitDiffPct.IsNegative() || sig.StopLimitDiffPct.GreaterThanOrEqual(hundred) {
		return domain.TradeSignal{}, fmt.Errorf("limit_price_difference %s must be in [0, 100)", sig.StopLimitDiffPct)
	}

	equityPct, err := decimalField(strategy, "order_equity", defaults.EquityPct)
	if err != nil {
		return domain.TradeSignal{}, err
	}
	if !equityPct.IsPositive() || equityPct.GreaterThan(hundred) {
		return domain.TradeSignal{}, fmt.Errorf("order_equity %s must be in (0, 100]", equityPct)
	}
	sig.EquityFraction = equityPct.Div(hundred)

	if sig.Overwrite, err = boolField(strategy, "overwrite"); err != nil {
		return domain.TradeSignal{}, err
	}

	return sig, nil
}

func decimalField(obj gjson.Result, key string, def decimal.Decimal) (decimal.Decimal, error) {
	v := obj.Get(key)
	switch v.Type {
	case gjson.Null:
		return def, nil
	case gjson.Number:
		return decimal.NewFromString(v.Raw)
	case gjson.String:
		if strings.TrimSpace(v.Str) == "" {
			return def, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %q is not a number", key, v.Str)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%s: unsupported value %s", key, v.Raw)
}

func boolField(obj gjson.Result, key string) (bool, error) {
	v := obj.Get(key)
	switch v.Type {
	case gjson.Null:
		return false, nil
	case gjson.True, gjson.False:
		return v.Bool(), nil
	case gjson.Number:
		return v.Num != 0, nil
	case gjson.String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.Str))
		if err != nil {
			return false, fmt.Errorf("%s: %q is not a boolean", key, v.Str)
		}
		return b, nil
	}
	return false, fmt.Errorf("%s: unsupported value %s", key, v.Raw)
}
