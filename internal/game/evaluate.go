package game

import "errors"

// Color is the per-letter result of comparing an attempt against the secret word.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorGray   Color = "gray"
)

// ErrLengthMismatch is returned when an attempt does not have the same number
// of letters as the secret word.
var ErrLengthMismatch = errors.New("attempt length does not match word length")

// Evaluate scores an attempt against the secret word, one color per letter.
//
// Two passes over a letter multiset: exact positions are marked green first and
// consume their letter; remaining positions are marked yellow while the letter
// still has count left, gray otherwise. This keeps green+yellow markings for
// any letter within its multiplicity in the secret word, so repeated letters
// are never over-rewarded.
//
// Words are compared rune by rune (Spanish words carry Ñ), and no I/O or
// shared state is involved, so Evaluate is safe to call concurrently.
func Evaluate(secret, attempt string) ([]Color, error) {
	secretRunes := []rune(secret)
	attemptRunes := []rune(attempt)

	if len(secretRunes) != len(attemptRunes) {
		return nil, ErrLengthMismatch
	}

	available := make(map[rune]int, len(secretRunes))
	for _, letter := range secretRunes {
		available[letter]++
	}

	colors := make([]Color, len(attemptRunes))

	for i, letter := range attemptRunes {
		if letter == secretRunes[i] {
			colors[i] = ColorGreen
			available[letter]--
		}
	}

	for i, letter := range attemptRunes {
		if colors[i] == ColorGreen {
			continue
		}
		if available[letter] > 0 {
			colors[i] = ColorYellow
			available[letter]--
		} else {
			colors[i] = ColorGray
		}
	}

	return colors, nil
}

// EvaluateAll scores every attempt in order. Attempts with a wrong length are
// skipped rather than failing the whole history; they cannot have been
// accepted in the first place.
func EvaluateAll(secret string, attempts []string) [][]Color {
	all := make([][]Color, 0, len(attempts))
	for _, attempt := range attempts {
		colors, err := Evaluate(secret, attempt)
		if err != nil {
			continue
		}
		all = append(all, colors)
	}
	return all
}

// colorRank orders colors for keyboard aggregation: green beats yellow beats gray.
func colorRank(c Color) int {
	switch c {
	case ColorGreen:
		return 2
	case ColorYellow:
		return 1
	default:
		return 0
	}
}

// KeyboardColors returns the best color seen for each letter across all
// attempts so far. A letter that scored green on any attempt stays green even
// if a later attempt scores it gray.
func KeyboardColors(secret string, attempts []string) map[rune]Color {
	keyboard := make(map[rune]Color)

	for _, attempt := range attempts {
		colors, err := Evaluate(secret, attempt)
		if err != nil {
			continue
		}
		for i, letter := range []rune(attempt) {
			current, seen := keyboard[letter]
			if !seen || colorRank(colors[i]) > colorRank(current) {
				keyboard[letter] = colors[i]
			}
		}
	}

	return keyboard
}
