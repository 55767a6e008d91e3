package connectors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	codeMandatoryParamEmpty  = -1102
	codeNoNeedToChangeMargin = -4046
)

// BinanceErrorCodes maps USDⓈ-M futures error codes to their short names.
var BinanceErrorCodes = map[int]string{
	-1000: "UNKNOWN",                                 // Unknown error while processing the request
	-1001: "DISCONNECTED",                            // Internal error; unable to process the request
	-1003: "TOO_MANY_REQUESTS",                       // Request weight limit exceeded
	-1006: "UNEXPECTED_RESP",                         // Unexpected response from the message bus
	-1007: "TIMEOUT",                                 // Backend timeout, execution status unknown
	-1013: "INVALID_MESSAGE",                         // Filter failure
	-1021: "INVALID_TIMESTAMP",                       // Timestamp outside recvWindow
	-1022: "INVALID_SIGNATURE",                       // Signature not valid
	-1102: "MANDATORY_PARAM_EMPTY_OR_MALFORMED",      // A mandatory parameter was not sent or was malformed
	-1111: "BAD_PRECISION",                           // Precision over the maximum defined for the asset
	-1121: "BAD_SYMBOL",                              // Invalid symbol
	-2010: "NEW_ORDER_REJECTED",                      // Order rejected
	-2011: "CANCEL_REJECTED",                         // Cancel rejected
	-2013: "NO_SUCH_ORDER",                           // Order does not exist
	-2014: "BAD_API_KEY_FMT",                         // API key format invalid
	-2015: "REJECTED_MBX_KEY",                        // Invalid API key, IP, or permissions
	-2019: "MARGIN_NOT_SUFFICIENT",                   // Margin is insufficient
	-2021: "ORDER_WOULD_IMMEDIATELY_TRIGGER",         // Trigger price would fire right away
	-2022: "REDUCE_ONLY_REJECT",                      // ReduceOnly order rejected
	-4003: "QTY_LESS_THAN_ZERO",                      // Quantity less than or equal to zero
	-4014: "PRICE_NOT_INCREASED_BY_TICK_SIZE",        // Price not a multiple of tick size
	-4023: "QTY_NOT_INCREASED_BY_STEP_SIZE",          // Quantity not a multiple of step size
	-4028: "INVALID_LEVERAGE",                        // Leverage not valid or unchanged
	-4046: "NO_NEED_TO_CHANGE_MARGIN_TYPE",           // Margin type already set
	-4061: "POSITION_SIDE_NOT_MATCH",                 // Position side does not match account mode
	-4131: "MARKET_ORDER_REJECT",                     // Counterparty best price outside the allowed range
	-4164: "MIN_NOTIONAL",                            // Order notional below the minimum
	-5022: "GTX_ORDER_REJECT",                        // Post-only order would take liquidity
}

// GetErrorMsg returns the short name for a Binance error code.
// If the code is unknown, returns a generic message including the code.
func GetErrorMsg(code int) string {
	if msg, ok := BinanceErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_BINANCE_ERROR_%d", code)
}

// APIError is the error body Binance returns with a non-2xx status.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance HTTP %d: code=%d (%s) %s", e.HTTPStatus, e.Code, GetErrorMsg(e.Code), e.Msg)
}

// IsParameterRequired reports whether err is the exchange complaining about
// a missing mandatory parameter.
func IsParameterRequired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == codeMandatoryParamEmpty {
		return true
	}
	msg := strings.ToLower(apiErr.Msg)
	return strings.Contains(msg, "parameter") && (strings.Contains(msg, "required") || strings.Contains(msg, "mandatory"))
}

// IsMarginTypeUnchanged reports whether err only says the requested margin
// type is already in effect.
func IsMarginTypeUnchanged(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeNoNeedToChangeMargin
}

// IsFilterRejection reports whether err is a precision or filter rejection
// (-1013, -1111, -4014, -4023), meaning the cached symbol filters may be out
// of date.
func IsFilterRejection(err error) bool {
	switch ErrorCode(err) {
	case -1013, -1111, -4014, -4023:
		return true
	}
	return false
}

// ErrorCode extracts the Binance error code from err, or 0.
func ErrorCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
