package util

import (
	"strings"
	"testing"
)

func TestNewClientOrderID(t *testing.T) {
	id := NewClientOrderID("binance")
	if !strings.HasPrefix(id, "binance-") {
		t.Errorf("id = %q, want binance- prefix", id)
	}
	if strings.Contains(strings.TrimPrefix(id, "binance-"), "-") {
		t.Errorf("id = %q, want dashes stripped from the random part", id)
	}

	bare := NewClientOrderID("")
	if strings.Contains(bare, "-") {
		t.Errorf("id = %q, want no dashes without a prefix", bare)
	}

	if NewClientOrderID("x") == NewClientOrderID("x") {
		t.Error("consecutive ids collided")
	}
}
