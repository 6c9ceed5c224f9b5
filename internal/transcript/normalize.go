// Package transcript holds the pure text transforms applied between
// transcription and paste.
package transcript

// Options selects the normalization transforms for one session.
type Options struct {
	Style Style
	// Terminology is nil when correction should be skipped, which is the case
	// for cloud sessions and sessions where polish was enabled.
	Terminology *Terminology
}

// Normalize runs terminology correction followed by punctuation conversion.
// Output depends only on text and opts.
func Normalize(text string, opts Options) string {
	if opts.Terminology != nil {
		text = opts.Terminology.Apply(text)
	}
	return ConvertPunctuation(text, opts.Style)
}
