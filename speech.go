package main

import (
	"io"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Recognizer turns captured audio into text. Implementations wrap whatever
// speech engine the host platform provides; a nil recognizer means voice
// input is unavailable and the session is text-only.
type Recognizer interface {
	Recognize(locale string) (string, error)
}

// Synthesizer speaks text aloud. Speak should return promptly and render
// audio in the background.
type Synthesizer interface {
	Speak(text, locale string) error
}

// SpeechIO bundles the optional voice boundary. Either side may be nil;
// synthesis failures disable further speech output for the session rather
// than failing the conversational flow that triggered them.
type SpeechIO struct {
	recognizer  Recognizer
	synthesizer Synthesizer
	locale      string
	logger      *log.Logger

	disabled bool
}

// NewSpeechIO wires a speech boundary. locale is a BCP 47 tag, e.g. "en-US".
func NewSpeechIO(rec Recognizer, syn Synthesizer, locale string, logger *log.Logger) *SpeechIO {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if locale == "" {
		locale = "en-US"
	}
	return &SpeechIO{recognizer: rec, synthesizer: syn, locale: locale, logger: logger}
}

// Listen blocks for one recognized utterance.
func (sp *SpeechIO) Listen() (string, error) {
	if sp == nil || sp.recognizer == nil {
		return "", ErrUnsupportedCapability
	}
	return sp.recognizer.Recognize(sp.locale)
}

// Speak voices an assistant answer. Markdown is stripped and long answers
// are truncated so speech stays short even when the written answer is not.
// The first synthesis failure turns speech off for the rest of the session.
func (sp *SpeechIO) Speak(text string) {
	if sp == nil || sp.synthesizer == nil || sp.disabled {
		return
	}
	spoken := sanitizeSpeech(text)
	if spoken == "" {
		return
	}
	if err := sp.synthesizer.Speak(spoken, sp.locale); err != nil {
		sp.logger.Printf("Warning: speech synthesis failed, disabling speech: %v", err)
		sp.disabled = true
	}
}

var (
	markdownMarks = regexp.MustCompile("[*_`#]+")
	markdownLinks = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// sanitizeSpeech strips markdown decoration and caps the text at
// SpeechMaxChars, cutting at a word boundary when one is near.
func sanitizeSpeech(text string) string {
	text = markdownLinks.ReplaceAllString(text, "$1")
	text = markdownMarks.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= SpeechMaxChars {
		return text
	}
	runes := []rune(text)
	cut := SpeechMaxChars
	for i := cut - 1; i > SpeechMaxChars/2; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return string(runes[:cut])
}
