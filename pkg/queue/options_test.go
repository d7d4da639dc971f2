// pkg/queue/options_test.go
package queue

import "testing"

func TestOptionsMaxIdlePagesDefaultsToSixteen(t *testing.T) {
	o, err := Options{Directory: t.TempDir()}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	if o.MaxIdlePages != defaultMaxIdlePages {
		t.Errorf("expected default %d, got %d", defaultMaxIdlePages, o.MaxIdlePages)
	}
}

func TestOptionsDisableIdlePagesSelectsZero(t *testing.T) {
	o, err := Options{Directory: t.TempDir(), MaxIdlePages: DisableIdlePages}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	if o.MaxIdlePages != 0 {
		t.Errorf("expected 0 idle pages, got %d", o.MaxIdlePages)
	}
}

func TestOptionsNegativeMaxIdlePagesRejected(t *testing.T) {
	if _, err := (Options{Directory: t.TempDir(), MaxIdlePages: -2}).withDefaults(); err == nil {
		t.Error("expected an error for a max idle pages value below DisableIdlePages")
	}
}
