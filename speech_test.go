package main

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type recordingSynthesizer struct {
	spoken []string
	err    error
}

func (r *recordingSynthesizer) Speak(text, locale string) error {
	if r.err != nil {
		return r.err
	}
	r.spoken = append(r.spoken, text)
	return nil
}

// --- sanitizeSpeech ---

func TestSanitizeSpeech_WhenMarkdownPresent_ShouldStripDecoration(t *testing.T) {
	got := sanitizeSpeech("**Bold** advice: try a `lamp` with [this shade](https://example.com)")
	if got != "Bold advice: try a lamp with this shade" {
		t.Errorf("unexpected sanitized text %q", got)
	}
}

func TestSanitizeSpeech_WhenTextTooLong_ShouldCapAtLimit(t *testing.T) {
	long := strings.Repeat("lamp shade corner ", 40)
	got := sanitizeSpeech(long)
	if utf8.RuneCountInString(got) > SpeechMaxChars {
		t.Errorf("expected at most %d runes, got %d", SpeechMaxChars, utf8.RuneCountInString(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Error("expected no trailing space after word-boundary cut")
	}
}

func TestSanitizeSpeech_WhenShortText_ShouldPassThrough(t *testing.T) {
	if got := sanitizeSpeech("Looks great."); got != "Looks great." {
		t.Errorf("expected passthrough, got %q", got)
	}
}

// --- SpeechIO ---

func TestSpeak_WhenSynthesizerFails_ShouldDisableFurtherSpeech(t *testing.T) {
	syn := &recordingSynthesizer{err: errors.New("no audio device")}
	sp := NewSpeechIO(nil, syn, "en-US", nil)

	sp.Speak("first")
	syn.err = nil
	sp.Speak("second")

	if len(syn.spoken) != 0 {
		t.Errorf("expected speech disabled after first failure, got %v", syn.spoken)
	}
}

func TestSpeak_WhenNilSpeechIO_ShouldBeSafe(t *testing.T) {
	var sp *SpeechIO
	sp.Speak("anything")

	if _, err := sp.Listen(); !errors.Is(err, ErrUnsupportedCapability) {
		t.Errorf("expected unsupported capability, got %v", err)
	}
}

func TestSpeak_WhenSynthesizerWorks_ShouldVoiceSanitizedText(t *testing.T) {
	syn := &recordingSynthesizer{}
	sp := NewSpeechIO(nil, syn, "en-US", nil)

	sp.Speak("**Nice** setup")
	if len(syn.spoken) != 1 || syn.spoken[0] != "Nice setup" {
		t.Errorf("expected sanitized speech, got %v", syn.spoken)
	}
}
