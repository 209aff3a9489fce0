package prayer

import "testing"

func TestMethodAPIIDs(t *testing.T) {
	// The id mapping is a wire contract with the computation API.
	want := map[Method]int{
		MethodKarachi: 1,
		MethodISNA:    2,
		MethodMWL:     3,
		MethodMakkah:  4,
		MethodEgypt:   5,
		MethodTehran:  7,
		MethodJafari:  0,
	}
	for m, id := range want {
		if got := m.APIID(); got != id {
			t.Errorf("%s id = %d, want %d", m, got, id)
		}
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("karachi")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m != MethodKarachi {
		t.Errorf("got %q", m)
	}

	if _, err := ParseMethod("  Mwl "); err != nil {
		t.Errorf("whitespace/case should be tolerated: %v", err)
	}

	if _, err := ParseMethod("LUNAR"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestMethodsCoversAllIDs(t *testing.T) {
	if len(Methods()) != len(apiIDs) {
		t.Errorf("Methods() lists %d methods, id table has %d", len(Methods()), len(apiIDs))
	}
	for _, m := range Methods() {
		if !m.Valid() {
			t.Errorf("%s not valid", m)
		}
	}
}
