package game

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidAttempt is returned when an attempt contains anything other than letters.
var ErrInvalidAttempt = errors.New("attempt must contain letters only")

// MaxRows is the default number of attempts a player gets per challenge.
const MaxRows = 6

// Finished reports whether a challenge is over for a player: either the secret
// word appears among the attempts, or the player has used up all rows.
func Finished(secret string, attempts []string, maxRows int) bool {
	if maxRows <= 0 {
		maxRows = MaxRows
	}
	for _, attempt := range attempts {
		if attempt == secret {
			return true
		}
	}
	return len(attempts) >= maxRows
}

// Won reports whether the secret word appears among the attempts.
func Won(secret string, attempts []string) bool {
	for _, attempt := range attempts {
		if attempt == secret {
			return true
		}
	}
	return false
}

// Normalize uppercases an attempt the way the board renders it. Accents are
// left alone; the dictionary words are stored unaccented and uppercase.
func Normalize(attempt string) string {
	return strings.ToUpper(strings.TrimSpace(attempt))
}

// ValidateAttempt checks that an attempt has the same number of letters as the
// secret word and contains letters only.
func ValidateAttempt(secret, attempt string) error {
	if err := ValidateWord(attempt); err != nil {
		return err
	}
	if len([]rune(attempt)) != len([]rune(secret)) {
		return ErrLengthMismatch
	}
	return nil
}

// ValidateWord checks that a word is non-empty and letters only.
func ValidateWord(word string) error {
	if word == "" {
		return ErrInvalidAttempt
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return ErrInvalidAttempt
		}
	}
	return nil
}
