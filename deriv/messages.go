package deriv

import (
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/digitpro/market"
)

// Event is anything the feed delivers to its consumer.
type Event interface {
	event()
}

// HistoryEvent carries a backfill of ticks for one symbol.
type HistoryEvent struct {
	Symbol string
	Ticks  []market.Tick
}

// TickEvent carries one live tick.
type TickEvent struct {
	market.SymbolTick
}

// ErrorEvent is an error reported by the API. It does not end the session.
type ErrorEvent struct {
	Code    string
	Message string
	Symbol  string
}

// StatusEvent reports connection state changes.
type StatusEvent struct {
	Connected bool
}

func (HistoryEvent) event() {}
func (TickEvent) event()    {}
func (ErrorEvent) event()   {}
func (StatusEvent) event()  {}

func (e ErrorEvent) Error() string {
	if e.Code == "" {
		return "deriv: " + e.Message
	}
	return fmt.Sprintf("deriv: %s: %s", e.Code, e.Message)
}

type ticksHistoryRequest struct {
	TicksHistory string `json:"ticks_history"`
	Count        int    `json:"count"`
	End          string `json:"end"`
	Style        string `json:"style"`
	Subscribe    int    `json:"subscribe,omitempty"`
}

type forgetAllRequest struct {
	ForgetAll string `json:"forget_all"`
}

type pingRequest struct {
	Ping int `json:"ping"`
}

func historyRequest(symbol string, count int) ticksHistoryRequest {
	return ticksHistoryRequest{
		TicksHistory: symbol,
		Count:        count,
		End:          "latest",
		Style:        "ticks",
		Subscribe:    1,
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type response struct {
	MsgType string    `json:"msg_type"`
	Error   *apiError `json:"error"`
	EchoReq struct {
		TicksHistory string `json:"ticks_history"`
	} `json:"echo_req"`
	History *struct {
		Prices []json.Number `json:"prices"`
		Times  []int64       `json:"times"`
	} `json:"history"`
	Tick *struct {
		Symbol string      `json:"symbol"`
		Quote  json.Number `json:"quote"`
		Epoch  int64       `json:"epoch"`
	} `json:"tick"`
}

// decodeMessage turns one API frame into feed events. Frames that carry
// nothing of interest (ping, forget_all) decode to no events.
func decodeMessage(b []byte) ([]Event, error) {
	var r response
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	if r.Error != nil {
		return []Event{ErrorEvent{
			Code:    r.Error.Code,
			Message: r.Error.Message,
			Symbol:  r.EchoReq.TicksHistory,
		}}, nil
	}

	var out []Event
	if r.History != nil {
		h := r.History
		if len(h.Prices) != len(h.Times) {
			return nil, fmt.Errorf("history for %s: %d prices but %d times", r.EchoReq.TicksHistory, len(h.Prices), len(h.Times))
		}
		ticks := make([]market.Tick, len(h.Prices))
		for i, p := range h.Prices {
			t, err := market.ParseTick(h.Times[i], p.String())
			if err != nil {
				return nil, fmt.Errorf("history for %s: %w", r.EchoReq.TicksHistory, err)
			}
			ticks[i] = t
		}
		out = append(out, HistoryEvent{Symbol: r.EchoReq.TicksHistory, Ticks: ticks})
	}

	if r.Tick != nil {
		if r.Tick.Symbol == "" {
			return nil, fmt.Errorf("tick without symbol")
		}
		t, err := market.ParseTick(r.Tick.Epoch, r.Tick.Quote.String())
		if err != nil {
			return nil, fmt.Errorf("tick for %s: %w", r.Tick.Symbol, err)
		}
		out = append(out, TickEvent{market.SymbolTick{Symbol: r.Tick.Symbol, Tick: t}})
	}
	return out, nil
}
