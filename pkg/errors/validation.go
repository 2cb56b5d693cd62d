package errors

import (
	"strings"
	"unicode"
)

// maxTermLength bounds user-supplied taxonomy terms. The longest scientific
// names in the NCBI dump are well below this.
const maxTermLength = 512

// ValidateTerm checks a user-supplied taxonomy term (an ID or a scientific
// name) before it reaches the store.
//
// The rules are deliberately small:
//   - No empty or blank terms
//   - No control characters or null bytes
//   - Maximum length of 512 bytes
func ValidateTerm(term string) error {
	if strings.TrimSpace(term) == "" {
		return New(ErrCodeInvalidTerm, "term cannot be empty")
	}
	if len(term) > maxTermLength {
		return New(ErrCodeInvalidTerm, "term too long (max %d characters)", maxTermLength)
	}
	for _, r := range term {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidTerm, "term contains invalid control characters")
		}
	}
	return nil
}

// ValidateTerms runs [ValidateTerm] on every term and requires at least min
// terms.
func ValidateTerms(terms []string, min int) error {
	if len(terms) < min {
		if min == 1 {
			return New(ErrCodeInvalidInput, "at least one term is required")
		}
		return New(ErrCodeInvalidInput, "at least %d terms are required, got %d", min, len(terms))
	}
	for _, t := range terms {
		if err := ValidateTerm(t); err != nil {
			return err
		}
	}
	return nil
}
