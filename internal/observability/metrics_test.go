package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/bitpacket/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("bitsctl", "POST", "/v1/decode", 200, 12*time.Millisecond)
	RecordDecode("test", "ok", 49, 30*time.Microsecond)
	RecordDecode("test", "truncated", 0, 10*time.Microsecond)

	log.Debug().Msg("observability/metrics: registration idempotent and recording paths executed")
}

func TestWriteTextIncludesDecodeFamilies(t *testing.T) {
	testlog.Start(t)
	RecordDecode("text-dump", "ok", 21, time.Microsecond)

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("write text: %v", err)
	}
	out := buf.String()
	for _, name := range []string{
		"bitpacket_decoder_transmissions_total",
		"bitpacket_decoder_transmission_bits",
		"bitpacket_decoder_decode_duration_seconds",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in dump", name)
		}
	}
	if !strings.Contains(out, `source="text-dump"`) {
		t.Fatalf("expected text-dump source label in dump")
	}
}
