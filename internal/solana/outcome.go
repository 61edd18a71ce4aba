package solana

import (
	"encoding/json"
	"fmt"
)

// OutcomeKind classifies the terminal result of one transaction attempt.
type OutcomeKind int

const (
	// OutcomeOk means the transaction landed without error.
	OutcomeOk OutcomeKind = iota

	// OutcomeNoRoute means no swap route could be quoted for the pair.
	OutcomeNoRoute

	// OutcomeSlippageExceeded means the program rejected the swap because the
	// price moved past the tolerated slippage.
	OutcomeSlippageExceeded

	// OutcomeProgramError is any other on-chain program error.
	OutcomeProgramError

	// OutcomeTransport covers RPC failures, timeouts and dropped transactions.
	OutcomeTransport
)

// String returns the outcome kind name for logging.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "OK"
	case OutcomeNoRoute:
		return "NO_ROUTE"
	case OutcomeSlippageExceeded:
		return "SLIPPAGE_EXCEEDED"
	case OutcomeProgramError:
		return "PROGRAM_ERROR"
	case OutcomeTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// Custom program error codes that indicate exceeded slippage.
// 6001 (0x1771) is the aggregator's SlippageToleranceExceeded; 30 is the
// legacy AMM ExceededSlippage code.
var slippageErrorCodes = map[int64]struct{}{
	6001: {},
	30:   {},
}

// TxOutcome is the single classification of a simulate/send/confirm result,
// produced at the RPC boundary so callers never inspect raw error shapes.
type TxOutcome struct {
	Kind      OutcomeKind
	Code      int64  // program error code when Kind is ProgramError or SlippageExceeded
	Signature string // set when a transaction was sent
	Err       error  // underlying transport error when Kind is Transport
}

// String renders the outcome with its detail for logging.
func (o TxOutcome) String() string {
	switch o.Kind {
	case OutcomeProgramError, OutcomeSlippageExceeded:
		return fmt.Sprintf("%s(code=%d)", o.Kind, o.Code)
	case OutcomeTransport:
		if o.Err != nil {
			return fmt.Sprintf("%s(%v)", o.Kind, o.Err)
		}
		return o.Kind.String()
	default:
		return o.Kind.String()
	}
}

// ClassifyTxError classifies a decoded transaction error value, as returned in
// the "err" field of simulateTransaction and getSignatureStatuses responses.
// A nil value classifies as Ok.
func ClassifyTxError(errValue interface{}) TxOutcome {
	if errValue == nil {
		return TxOutcome{Kind: OutcomeOk}
	}

	if code, ok := customErrorCode(errValue); ok {
		if _, slip := slippageErrorCodes[code]; slip {
			return TxOutcome{Kind: OutcomeSlippageExceeded, Code: code}
		}
		return TxOutcome{Kind: OutcomeProgramError, Code: code}
	}

	// Non-instruction errors (e.g. "BlockhashNotFound") are not retryable on
	// the slippage dimension.
	return TxOutcome{Kind: OutcomeProgramError, Code: -1}
}

// TransportOutcome wraps a transport-level failure.
func TransportOutcome(err error) TxOutcome {
	return TxOutcome{Kind: OutcomeTransport, Err: err}
}

// customErrorCode extracts the Custom program error code from the JSON error
// shape {"InstructionError": [index, {"Custom": code}]}.
func customErrorCode(errValue interface{}) (int64, bool) {
	m, ok := errValue.(map[string]interface{})
	if !ok {
		return 0, false
	}

	instErr, ok := m["InstructionError"]
	if !ok {
		return 0, false
	}

	parts, ok := instErr.([]interface{})
	if !ok || len(parts) < 2 {
		return 0, false
	}

	detail, ok := parts[1].(map[string]interface{})
	if !ok {
		return 0, false
	}

	custom, ok := detail["Custom"]
	if !ok {
		return 0, false
	}

	switch v := custom.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
