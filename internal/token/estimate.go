package token

// Estimator approximates token counts from character classes.
// CJK Unified Ideographs (U+4E00–U+9FFF): ~2 chars/token.
// ASCII and other characters: ~4 chars/token.
//
// Precision: ±20–30% for mixed content — sufficient for budget thresholds
// when the BPE ranks are unavailable (offline start). Does NOT cover CJK
// Extension A/B or CJK punctuation (U+3000–U+303F, U+FF00–U+FFEF).
type Estimator struct{}

// Count estimates the token count of text. Never fails.
func (Estimator) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	var cjk, other int
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			cjk++
		} else {
			other++
		}
	}
	return cjk/2 + other/4 + 1, nil // +1 avoids zero for short strings
}
