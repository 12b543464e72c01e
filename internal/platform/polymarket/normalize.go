package polymarket

import (
	"strconv"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// The Data API is loose about types: numeric fields arrive as JSON numbers or
// as strings depending on the endpoint, and optional fields may be absent
// entirely. All coercion into typed records lives here so the rest of the
// codebase never touches a RawRecord.

// NormalizeTrade converts a raw activity record into a TradeRecord for the
// given wallet. New records always start unprocessed.
func NormalizeTrade(wallet string, raw RawRecord) domain.TradeRecord {
	return domain.TradeRecord{
		Wallet:          wallet,
		TransactionHash: asString(raw["transactionHash"]),
		Timestamp:       asInt64(raw["timestamp"]),
		ConditionID:     asString(raw["conditionId"]),
		Type:            asString(raw["type"]),
		Asset:           asString(raw["asset"]),
		Side:            asString(raw["side"]),
		Size:            asFloat(raw["size"]),
		UsdcSize:        asFloat(raw["usdcSize"]),
		Price:           asFloat(raw["price"]),
		OutcomeIndex:    int(asInt64(raw["outcomeIndex"])),
		Title:           asString(raw["title"]),
		Slug:            asString(raw["slug"]),
		Icon:            asString(raw["icon"]),
		EventSlug:       asString(raw["eventSlug"]),
		Outcome:         asString(raw["outcome"]),
		Bot:             false,
		BotExecutedTime: 0,
	}
}

// NormalizePosition converts a raw positions record into a PositionRecord for
// the given wallet.
func NormalizePosition(wallet string, raw RawRecord) domain.PositionRecord {
	return domain.PositionRecord{
		Wallet:             wallet,
		Asset:              asString(raw["asset"]),
		ConditionID:        asString(raw["conditionId"]),
		Size:               asFloat(raw["size"]),
		AvgPrice:           asFloat(raw["avgPrice"]),
		InitialValue:       asFloat(raw["initialValue"]),
		CurrentValue:       asFloat(raw["currentValue"]),
		CashPnl:            asFloat(raw["cashPnl"]),
		PercentPnl:         asFloat(raw["percentPnl"]),
		TotalBought:        asFloat(raw["totalBought"]),
		RealizedPnl:        asFloat(raw["realizedPnl"]),
		PercentRealizedPnl: asFloat(raw["percentRealizedPnl"]),
		CurPrice:           asFloat(raw["curPrice"]),
		Redeemable:         asBool(raw["redeemable"]),
		Mergeable:          asBool(raw["mergeable"]),
		Title:              asString(raw["title"]),
		Slug:               asString(raw["slug"]),
		Icon:               asString(raw["icon"]),
		EventSlug:          asString(raw["eventSlug"]),
		Outcome:            asString(raw["outcome"]),
		OutcomeIndex:       int(asInt64(raw["outcomeIndex"])),
		OppositeOutcome:    asString(raw["oppositeOutcome"]),
		OppositeAsset:      asString(raw["oppositeAsset"]),
		EndDate:            asString(raw["endDate"]),
		NegativeRisk:       asBool(raw["negativeRisk"]),
	}
}

// --------------------------------------------------------------------------
// Coercion helpers
// --------------------------------------------------------------------------

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			// Some endpoints format integers as "123.0".
			f, ferr := strconv.ParseFloat(n, 64)
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}
