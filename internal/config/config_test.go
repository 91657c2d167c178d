package config

import "testing"

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateRejectsNegativeCapacity(t *testing.T) {
	c := &Config{Size: 3, Producers: -1}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative producers")
	}
}

func TestValidateRejectsInvertedDwellRange(t *testing.T) {
	c := &Config{Size: 1, DwellMin: 5, DwellMax: 1}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for dwell-min > dwell-max")
	}
}

func TestValidateRejectsNonPositiveSize(t *testing.T) {
	c := &Config{Size: 0}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for size <= 0")
	}
}

func TestValidateRejectsRankOutOfRange(t *testing.T) {
	c := &Config{Size: 2, Rank: 2}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for rank >= size")
	}
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	c := &Config{Size: 1, Transport: "carrier-pigeon"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestParseFlags(t *testing.T) {
	c, err := Parse([]string{
		"-rank=1", "-size=3", "-producers=2", "-consumers=1",
		"-slots=1", "-artifacts=0", "-dwell-min=0.5", "-dwell-max=1.5",
		"-transport=grpc", "-controller-addr=localhost:9999",
	})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if c.Rank != 1 || c.Size != 3 || c.Producers != 2 || c.Consumers != 1 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Transport != "grpc" || c.ControllerAddr != "localhost:9999" {
		t.Fatalf("unexpected transport config: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("parsed config should validate: %v", err)
	}
}
