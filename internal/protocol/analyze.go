package protocol

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/danmuck/bitpacket/internal/observability"
	"github.com/danmuck/bitpacket/internal/protocol/packet"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Report is the outcome of decoding one transmission.
type Report struct {
	Packet     *packet.Packet
	VersionSum int64
	Value      int64
	Bits       int
	Padding    int
	Stats      packet.Stats
}

// Result pairs a batch input with its report or decode error.
type Result struct {
	Index  int
	Report *Report
	Err    error
}

// Analyzer decodes transmissions under fixed limits and records decode
// metrics labelled with Source.
type Analyzer struct {
	Source string
	Limits packet.Limits
}

func NewAnalyzer(source string, limits packet.Limits) *Analyzer {
	return &Analyzer{Source: source, Limits: limits}
}

// Analyze decodes raw with DefaultLimits.
func Analyze(raw string) (*Report, error) {
	return NewAnalyzer("lib", packet.DefaultLimits()).Analyze(raw)
}

// Analyze decodes the outermost packet of raw and computes both results.
func (a *Analyzer) Analyze(raw string) (*Report, error) {
	start := time.Now()
	report, err := a.analyze(raw)
	elapsed := time.Since(start)

	if err != nil {
		offset, _ := packet.OffsetOf(err)
		observability.RecordDecode(a.Source, packet.KindOf(err), 0, elapsed)
		log.Debug().
			Str("source", a.Source).
			Str("kind", packet.KindOf(err)).
			Int("offset", offset).
			Err(err).
			Msg("transmission rejected")
		return nil, err
	}

	observability.RecordDecode(a.Source, "ok", report.Bits, elapsed)
	log.Debug().
		Str("source", a.Source).
		Int("bits", report.Bits).
		Int("padding", report.Padding).
		Int("packets", report.Stats.Packets).
		Int64("version_sum", report.VersionSum).
		Int64("value", report.Value).
		Dur("duration", elapsed).
		Msg("transmission decoded")
	return report, nil
}

func (a *Analyzer) analyze(raw string) (*Report, error) {
	r, err := packet.OpenHex(raw)
	if err != nil {
		return nil, err
	}
	p, err := packet.NewDecoder(r, a.Limits).Decode()
	if err != nil {
		return nil, err
	}
	return &Report{
		Packet:     p,
		VersionSum: packet.SumVersions(p),
		Value:      packet.Evaluate(p),
		Bits:       r.Position(),
		Padding:    r.Len() - r.Position(),
		Stats:      packet.Summarize(p),
	}, nil
}

// AnalyzeAll decodes independent transmissions on up to workers goroutines.
// Results keep input order; a failed decode only sets that Result's Err.
// The returned error is non-nil only when ctx ends before the batch does.
func (a *Analyzer) AnalyzeAll(ctx context.Context, inputs []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(inputs))
	for i := range results {
		results[i].Index = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, raw := range inputs {
		if gctx.Err() != nil {
			break
		}
		i, raw := i, raw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := a.Analyze(raw)
			results[i] = Result{Index: i, Report: report, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	for _, res := range results {
		if res.Report == nil && res.Err == nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

// SplitTransmissions returns the non-blank lines of text, trimmed, one
// transmission per line.
func SplitTransmissions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
