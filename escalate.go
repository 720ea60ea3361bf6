package main

import (
	"regexp"
	"strings"
	"unicode"
)

// purchaseKeywords are terms whose presence marks a text as discussing
// purchasable items. Deliberately narrow: generic room vocabulary ("light",
// "space") must not trigger.
var purchaseKeywords = []string{
	"buy", "purchase", "shop", "shopping", "store", "order",
	"price", "priced", "cost", "costs", "deal", "discount",
	"product", "recommend", "retailer", "amazon", "ikea", "wayfair",
}

// currencyPattern matches price mentions such as "$49.99" or "€120".
var currencyPattern = regexp.MustCompile(`[$€£]\s?\d[\d.,]*`)

// mentionsPurchasableItems is the auto-escalation heuristic: it reports
// whether text appears to discuss items the user could buy, via a keyword
// set, a currency pattern, or a brand-name-like capitalized bigram. Fuzzy
// by nature; kept as a named predicate so its false-positive and
// false-negative rates can be tuned and tested in isolation.
func mentionsPurchasableItems(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range purchaseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if currencyPattern.MatchString(text) {
		return true
	}
	return hasBrandLikeBigram(text)
}

// hasBrandLikeBigram looks for two consecutive capitalized words that do not
// open a sentence, e.g. "a Philips Hue lamp". Sentence-initial pairs are
// skipped since ordinary prose capitalizes there anyway.
func hasBrandLikeBigram(text string) bool {
	words := strings.Fields(text)
	sentenceStart := true
	prevCap := false
	prevStart := false

	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		isCap := trimmed != "" && unicode.IsUpper(rune(trimmed[0]))

		if isCap && prevCap && !prevStart {
			return true
		}

		prevCap = isCap
		prevStart = sentenceStart
		sentenceStart = strings.ContainsAny(w, ".!?")
	}
	return false
}

// isSuggestIntent reports whether an utterance explicitly asks for product
// suggestions and should route straight to the structured suggestion flow.
func isSuggestIntent(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, kw := range suggestIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
