package source

import (
	"testing"

	"go.uber.org/zap"
)

func TestRegistryRejectsUnknownTypes(t *testing.T) {
	_, err := Registry([]Config{
		{Name: "acme", Type: "workday", Board: "acme"},
	}, nil, zap.NewNop())

	if err == nil {
		t.Fatalf("expected an error for an unknown source type")
	}
}

func TestRegistryBuildsConfiguredAdapters(t *testing.T) {
	adapters, err := Registry([]Config{
		{Name: "acme-gh", Type: "greenhouse", Board: "acme"},
		{Name: "acme-lever", Type: "lever", Board: "acme"},
		{Name: "acme-site", Type: "careers", URL: "https://example.com/careers"},
	}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(adapters) != 3 {
		t.Fatalf("expected 3 adapters, got %d", len(adapters))
	}
	for i, name := range []string{"acme-gh", "acme-lever", "acme-site"} {
		if adapters[i].Name() != name {
			t.Fatalf("expected adapter %d to be %q, got %q", i, name, adapters[i].Name())
		}
	}
}
