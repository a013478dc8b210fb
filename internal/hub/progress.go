package hub

import (
	"io"

	humanize "github.com/dustin/go-humanize"
	mpb "github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressReader wraps a download stream with a terminal progress bar.
// The returned finish func must be called exactly once when the copy ends;
// pass failed=true when the stream broke early so the bar is aborted rather
// than waited on. ProxyReader only completes a bar on io.EOF, so waiting
// after any other read error would block forever.
func progressReader(r io.Reader, w Weights) (io.Reader, func(failed bool)) {
	p := mpb.New(mpb.WithWidth(60))
	bar := p.New(w.Size,
		mpb.BarStyle(),
		mpb.BarFillerOnComplete("|"),
		mpb.PrependDecorators(
			decor.Name(w.File+" =>", decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Counters(decor.SizeB1024(0), "% .2f / % .2f"), humanize.Bytes(uint64(w.Size))),
			decor.OnComplete(decor.Name(" | ", decor.WCSyncWidthR), " | "),
			decor.OnComplete(
				decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncWidthR), "done",
			),
		),
	)
	finish := func(failed bool) {
		if failed {
			bar.Abort(true)
		}
		p.Wait()
	}
	return bar.ProxyReader(r), finish
}
