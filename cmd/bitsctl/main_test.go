package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/bitpacket/internal/protocol"
	"github.com/danmuck/bitpacket/internal/protocol/export"
	"github.com/danmuck/bitpacket/internal/testutil/testlog"
)

func runCLI(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	testlog.Start(t)
	var out bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(input), &out)
	return out.String(), err
}

func TestRunParts(t *testing.T) {
	tests := []struct {
		part string
		want string
	}{
		{"versions", "16\n"},
		{"value", "15\n"},
		{"both", "version_sum=16 value=15\n"},
	}
	for _, tt := range tests {
		t.Run(tt.part, func(t *testing.T) {
			out, err := runCLI(t, "8A004A801A8002F478\n", "-part", tt.part)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if out != tt.want {
				t.Fatalf("unexpected output %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRunTree(t *testing.T) {
	out, err := runCLI(t, "38006F45291200", "-part", "value", "-tree")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "1\n(lt@1 10@6 20@2)\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunDecodeErrorSurfaces(t *testing.T) {
	_, err := runCLI(t, "38006F45")
	if !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestRunBatch(t *testing.T) {
	out, err := runCLI(t, "C200B40A82\n\nD2FE\n880086C3E88112\n", "-batch", "-part", "value")
	if err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Fatalf("expected batch failure summary, got %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[0] != "1: 3" || !strings.HasPrefix(lines[1], "2: error:") || lines[2] != "3: 7" {
		t.Fatalf("unexpected batch output %q", out)
	}
}

func TestRunWritesCBORAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cborPath := filepath.Join(dir, "tree.cbor")
	metricsPath := filepath.Join(dir, "metrics.prom")
	input := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(input, []byte("EE00D40C823060\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if _, err := runCLI(t, "", "-input", input, "-cbor", cborPath, "-metrics-out", metricsPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(cborPath)
	if err != nil {
		t.Fatalf("read cbor: %v", err)
	}
	p, err := export.UnmarshalCBOR(data)
	if err != nil {
		t.Fatalf("unmarshal cbor: %v", err)
	}
	if p.String() != "(max@7 1@2 2@4 3@1)" {
		t.Fatalf("unexpected tree %s", p)
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(metrics), `bitpacket_decoder_transmissions_total{result="ok",source="cli"}`) {
		t.Fatalf("cli decode not recorded:\n%s", metrics)
	}
}

func TestParseFlagsRejectsBadCombinations(t *testing.T) {
	if _, err := parseFlags([]string{"-part", "all"}); err == nil {
		t.Fatalf("expected unknown part error")
	}
	if _, err := parseFlags([]string{"-batch", "-cbor", "x"}); err == nil {
		t.Fatalf("expected -cbor/-batch conflict")
	}
}

func TestRunConfigLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitsctl.toml")
	if err := os.WriteFile(path, []byte("[limits]\nmax_bits = 8\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := runCLI(t, "D2FE28", "-config", path)
	if !errors.Is(err, protocol.ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
}
