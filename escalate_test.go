package main

import "testing"

// --- mentionsPurchasableItems ---

func TestMentionsPurchasableItems_WhenBrandAndPrice_ShouldReturnTrue(t *testing.T) {
	if !mentionsPurchasableItems("I'd recommend a Philips Hue Go lamp for $49.99") {
		t.Error("expected brand and price mention to trigger")
	}
}

func TestMentionsPurchasableItems_WhenPlainSceneComment_ShouldReturnFalse(t *testing.T) {
	if mentionsPurchasableItems("The lighting looks warm and even") {
		t.Error("expected plain scene comment not to trigger")
	}
}

func TestMentionsPurchasableItems_WhenKeywordOnly_ShouldReturnTrue(t *testing.T) {
	if !mentionsPurchasableItems("You could buy a small rug to soften the floor") {
		t.Error("expected purchase keyword to trigger")
	}
}

func TestMentionsPurchasableItems_WhenCurrencyOnly_ShouldReturnTrue(t *testing.T) {
	if !mentionsPurchasableItems("A decent floor cushion runs around €35 these days") {
		t.Error("expected currency mention to trigger")
	}
}

func TestMentionsPurchasableItems_WhenBrandBigramOnly_ShouldReturnTrue(t *testing.T) {
	if !mentionsPurchasableItems("something like the West Elm version would fit the corner") {
		t.Error("expected capitalized brand bigram to trigger")
	}
}

func TestMentionsPurchasableItems_WhenSentenceInitialCapitals_ShouldReturnFalse(t *testing.T) {
	if mentionsPurchasableItems("Nice work. Your desk area feels balanced") {
		t.Error("expected sentence-initial capitals not to trigger")
	}
}

func TestMentionsPurchasableItems_WhenEmpty_ShouldReturnFalse(t *testing.T) {
	if mentionsPurchasableItems("") {
		t.Error("expected empty text not to trigger")
	}
}

// --- isSuggestIntent ---

func TestIsSuggestIntent_WhenExplicitAsk_ShouldReturnTrue(t *testing.T) {
	if !isSuggestIntent("What should I add to this room?") {
		t.Error("expected explicit suggestion ask to route")
	}
}

func TestIsSuggestIntent_WhenGeneralQuestion_ShouldReturnFalse(t *testing.T) {
	if isSuggestIntent("How does the desk placement look?") {
		t.Error("expected general question not to route")
	}
}
