package network

import "testing"

func TestDefaultDeduplicationKeyFunc(t *testing.T) {
	a := DefaultDeduplicationKeyFunc("GET", "https://api.example.com/a", nil)
	b := DefaultDeduplicationKeyFunc("GET", "https://api.example.com/a", nil)
	if a != b {
		t.Error("Expected identical requests to share a key")
	}

	other := DefaultDeduplicationKeyFunc("GET", "https://api.example.com/b", nil)
	if a == other {
		t.Error("Expected distinct URLs to produce distinct keys")
	}

	post := DefaultDeduplicationKeyFunc("POST", "https://api.example.com/a", []byte(`{"x":1}`))
	postOther := DefaultDeduplicationKeyFunc("POST", "https://api.example.com/a", []byte(`{"x":2}`))
	if post == postOther {
		t.Error("Expected distinct POST bodies to produce distinct keys")
	}
}

func TestDefaultDeduplicationCondition(t *testing.T) {
	for _, method := range []string{"GET", "HEAD", "OPTIONS"} {
		if !DefaultDeduplicationCondition(method) {
			t.Errorf("Expected %s eligible for deduplication", method)
		}
	}
	for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
		if DefaultDeduplicationCondition(method) {
			t.Errorf("Expected %s ineligible for deduplication", method)
		}
	}
}
