package usecase

import (
	"testing"
	"time"
)

func TestParseTicks_FlatShape(t *testing.T) {
	b := []byte(`{"symbol":"EURUSD","bid":1.1000,"ask":1.1002,"volume":2,"t":1767312000000}`)

	ticks, ok := parseTicks(b)
	if !ok {
		t.Fatal("expected flat payload to parse")
	}
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	tk := ticks[0]
	if tk.Symbol != "EURUSD" || tk.Bid != 1.1000 || tk.Ask != 1.1002 {
		t.Errorf("unexpected tick %+v", tk)
	}
	if tk.Spread != 1.1002-1.1000 {
		t.Errorf("spread = %v", tk.Spread)
	}
	if !tk.Timestamp.Equal(time.UnixMilli(1767312000000).UTC()) {
		t.Errorf("timestamp = %v", tk.Timestamp)
	}
}

func TestParseTicks_SecondsEpoch(t *testing.T) {
	b := []byte(`{"symbol":"EURUSD","bid":1.1,"ask":1.1002,"volume":1,"t":1767312000}`)

	ticks, ok := parseTicks(b)
	if !ok {
		t.Fatal("expected parse")
	}
	if !ticks[0].Timestamp.Equal(time.Unix(1767312000, 0).UTC()) {
		t.Errorf("timestamp = %v", ticks[0].Timestamp)
	}
}

func TestParseTicks_EnvelopeShape(t *testing.T) {
	b := []byte(`{"type":"tick","data":[
        {"symbol":"EURUSD","bid":1.1,"ask":1.1002,"volume":1,"t":1767312000000},
        {"symbol":"GBPUSD","bid":1.25,"ask":1.2502,"volume":2,"t":1767312000000},
        {"symbol":"","bid":1.0,"ask":1.0002,"volume":1,"t":1767312000000}
    ]}`)

	ticks, ok := parseTicks(b)
	if !ok {
		t.Fatal("expected envelope payload to parse")
	}
	// the unnamed entry is dropped, the valid two survive
	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}
	if ticks[0].Symbol != "EURUSD" || ticks[1].Symbol != "GBPUSD" {
		t.Errorf("symbols = %s/%s", ticks[0].Symbol, ticks[1].Symbol)
	}
}

func TestParseTicks_SymbolKeyedShape(t *testing.T) {
	b := []byte(`{"EURUSD":{"bid":1.1,"ask":1.1002,"volume":1,"t":1767312000000}}`)

	ticks, ok := parseTicks(b)
	if !ok {
		t.Fatal("expected keyed payload to parse")
	}
	if len(ticks) != 1 || ticks[0].Symbol != "EURUSD" {
		t.Fatalf("unexpected ticks %+v", ticks)
	}
}

func TestParseTicks_UnknownShapesDropped(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"type":"ping"}`),
		[]byte(`{"symbol":"EURUSD","bid":-1,"ask":1.1,"t":1767312000000}`),
		[]byte(`{"symbol":"EURUSD","bid":1.2,"ask":1.1,"t":1767312000000}`), // crossed quote
		[]byte(`[1,2,3]`),
		[]byte(`{}`),
	}
	for _, b := range cases {
		if ticks, ok := parseTicks(b); ok {
			t.Errorf("payload %s parsed unexpectedly: %+v", b, ticks)
		}
	}
}
