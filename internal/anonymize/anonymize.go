// Package anonymize replaces contact identifiers in résumé text with stable
// placeholders before the text leaves the trust boundary, and restores them
// afterwards.
//
// Detection runs in a fixed order: email, phone, postal address, name.
// Address detection must run before the name pass, whose word matching
// would otherwise corrupt city names that share the candidate's surname.
// The phone pass never extends into a postal code followed by a city.
package anonymize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// Redaction placeholders.
const (
	PlaceholderName    = "[NAME]"
	PlaceholderEmail   = "[EMAIL]"
	PlaceholderPhone   = "[PHONE]"
	PlaceholderAddress = "[ADDRESS]"
)

const (
	minPhoneDigits   = 7
	maxPhoneDigits   = 15
	maxNameLineRunes = 60
	minNameTokenLen  = 3
)

// Redactor holds the compiled detection patterns.
// A Redactor is immutable and safe for concurrent use.
type Redactor struct {
	email   *regexp.Regexp
	phone   *regexp.Regexp
	address *regexp.Regexp
	year    *regexp.Regexp
	headers map[string]bool
}

var defaultRedactor = New()

// New compiles the detection patterns.
func New() *Redactor {
	return &Redactor{
		email: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		// Optional country code, optional parenthesized area code, then digit
		// groups joined by at most one space, hyphen or slash. Newlines never join.
		phone: regexp.MustCompile(`(?:(?:\+|00)\d{1,3}[ \-/]?)?(?:\(\d{1,5}\)[ \-/]?)?\d+(?:[ \-/]\d+)*`),
		// Five-digit postal code followed by one or more capitalized words,
		// allowing lowercase connectors as in "Frankfurt am Main" or "Halle (Saale)".
		address: regexp.MustCompile(`\b\d{5}[ \t]+\p{Lu}[\p{L}.]*(?:(?:[ \t]+(?:am|an|der|im|in|bei|ob))*(?:[ \t]+|-)(?:\p{Lu}[\p{L}.]*|\(\p{Lu}\p{L}*\)))*`),
		year:  regexp.MustCompile(`\b(?:19|20)\d{2}\b`),
		headers: sectionHeaders(),
	}
}

// Default returns the shared Redactor.
func Default() *Redactor {
	return defaultRedactor
}

// Anonymize redacts text with the shared Redactor.
func Anonymize(text string) types.AnonymizedDocument {
	return defaultRedactor.Anonymize(text)
}

// Reinsert replaces each placeholder with the captured value, for exactly the
// fields present in contacts. Placeholders of absent fields are left as is.
func Reinsert(text string, contacts types.ContactRecord) string {
	pairs := make([]string, 0, 8)
	if contacts.Name != "" {
		pairs = append(pairs, PlaceholderName, contacts.Name)
	}
	if contacts.Email != "" {
		pairs = append(pairs, PlaceholderEmail, contacts.Email)
	}
	if contacts.Phone != "" {
		pairs = append(pairs, PlaceholderPhone, contacts.Phone)
	}
	if contacts.Address != "" {
		pairs = append(pairs, PlaceholderAddress, contacts.Address)
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// ContainsPlaceholder reports whether text still carries a redaction placeholder.
func ContainsPlaceholder(text string) bool {
	for _, p := range []string{PlaceholderName, PlaceholderEmail, PlaceholderPhone, PlaceholderAddress} {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

var placeholderStripper = strings.NewReplacer(
	PlaceholderName, "",
	PlaceholderEmail, "",
	PlaceholderPhone, "",
	PlaceholderAddress, "",
)

// StripPlaceholders removes every redaction placeholder from text. It is for
// placeholders whose field has no captured value. Separators left dangling
// are trimmed, and a line left without letters or digits is dropped.
func StripPlaceholders(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !ContainsPlaceholder(line) {
			kept = append(kept, line)
			continue
		}
		line = strings.Join(strings.Fields(placeholderStripper.Replace(line)), " ")
		line = strings.TrimLeft(line, " |·,;/")
		line = strings.TrimRight(line, " |·,;/–-")
		if !strings.ContainsFunc(line, isWordRune) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Anonymize returns text with contact identifiers replaced and the captured
// originals. It never fails; a detector that finds nothing leaves its field empty.
func (r *Redactor) Anonymize(text string) types.AnonymizedDocument {
	var contacts types.ContactRecord

	// 1. Email
	if first := r.email.FindString(text); first != "" {
		contacts.Email = first
		text = r.email.ReplaceAllString(text, PlaceholderEmail)
	}

	// 2. Phone
	text, contacts.Phone = r.redactPhones(text)

	// 3. Postal code + city
	if first := r.address.FindString(text); first != "" {
		contacts.Address = first
		text = r.address.ReplaceAllString(text, PlaceholderAddress)
	}

	// 4. Name from the first non-blank line
	text, contacts.Name = r.redactName(text)

	return types.AnonymizedDocument{Text: text, Contacts: contacts}
}

// redactPhones replaces every plausible phone number and returns the first.
// A match directly after a letter or digit is part of a larger token, such
// as an id, and is left alone. A match is cut where a postal code with city
// begins, so "Hauptstraße 123 12345 Berlin" yields no phone.
func (r *Redactor) redactPhones(text string) (string, string) {
	var (
		sb    strings.Builder
		first string
		last  int
	)
	addresses := r.address.FindAllStringIndex(text, -1)
	for _, loc := range r.phone.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if before, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordRune(before) {
			continue
		}
		for _, a := range addresses {
			if a[0] >= start && a[0] < end {
				end = start + len(strings.TrimRight(text[start:a[0]], " -/"))
				break
			}
		}
		match := text[start:end]
		if match == "" || !r.isPhone(match) {
			continue
		}
		if first == "" {
			first = match
		}
		sb.WriteString(text[last:start])
		sb.WriteString(PlaceholderPhone)
		last = end
	}
	if first == "" {
		return text, ""
	}
	sb.WriteString(text[last:])
	return sb.String(), first
}

// isPhone filters phone-pattern matches down to plausible numbers.
func (r *Redactor) isPhone(match string) bool {
	digits := 0
	for _, c := range match {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return false
	}
	return !looksLikeDate(match)
}

// looksLikeDate reports whether every digit group is a year or a one- or
// two-digit day/month, as in "2019-2023" or "01/2019-03/2023".
func looksLikeDate(match string) bool {
	groups := strings.FieldsFunc(match, func(c rune) bool { return c < '0' || c > '9' })
	years := 0
	for _, g := range groups {
		switch {
		case len(g) == 4 && (strings.HasPrefix(g, "19") || strings.HasPrefix(g, "20")):
			years++
		case len(g) <= 2:
		default:
			return false
		}
	}
	return years > 0
}

// redactName replaces the first non-blank line when it looks like a name,
// plus standalone occurrences of its last token elsewhere.
func (r *Redactor) redactName(text string) (string, string) {
	lines := strings.Split(text, "\n")
	idx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return text, ""
	}

	candidate := strings.TrimSpace(lines[idx])
	if !r.isNameCandidate(candidate) {
		return text, ""
	}

	lines[idx] = strings.Replace(lines[idx], candidate, PlaceholderName, 1)

	tokens := strings.Fields(candidate)
	last := tokens[len(tokens)-1]
	if utf8.RuneCountInString(last) >= minNameTokenLen && !isPlaceholderWord(last) {
		for i := range lines {
			if i != idx {
				lines[i] = replaceWord(lines[i], last, PlaceholderName)
			}
		}
	}

	return strings.Join(lines, "\n"), candidate
}

func (r *Redactor) isNameCandidate(line string) bool {
	if utf8.RuneCountInString(line) > maxNameLineRunes {
		return false
	}
	if ContainsPlaceholder(line) || r.year.MatchString(line) {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(strings.TrimRight(line, ":")))
	return !r.headers[key]
}

func isPlaceholderWord(word string) bool {
	switch word {
	case "NAME", "EMAIL", "PHONE", "ADDRESS":
		return true
	}
	return false
}

// replaceWord replaces occurrences of word in s that are not part of a larger
// word. Boundaries are Unicode-aware so names like "Müller" match.
func replaceWord(s, word, repl string) string {
	var sb strings.Builder
	rest := s
	for {
		i := strings.Index(rest, word)
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		end := i + len(word)
		before, _ := utf8.DecodeLastRuneInString(rest[:i])
		after, _ := utf8.DecodeRuneInString(rest[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(rest) || !isWordRune(after)) {
			sb.WriteString(rest[:i])
			sb.WriteString(repl)
		} else {
			sb.WriteString(rest[:end])
		}
		rest = rest[end:]
	}
	return sb.String()
}

func isWordRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
