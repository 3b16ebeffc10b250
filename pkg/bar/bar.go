// Package bar shows replay progress on the terminal.
package bar

import (
	"io"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
)

// New returns a byte progress bar on stdout.
func New(length int64, text string) *progressbar.ProgressBar {
	return NewWriter(ansi.NewAnsiStdout(), length, text)
}

// NewWriter returns a byte progress bar rendering to w.
func NewWriter(w io.Writer, length int64, text string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		length,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription("[cyan]"+text+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Reader advances b by every byte read from r.
func Reader(r io.Reader, b *progressbar.ProgressBar) io.Reader {
	return io.TeeReader(r, b)
}
