package haikoo

import (
	"fmt"
	"strings"
	"unicode"
)

// Verse styles.
const (
	StyleCaption = "caption"
	StyleTags    = "tags"
	StyleFusion  = "fusion"
)

var lineSyllables = [3]int{5, 7, 5}

// Syllables estimates the syllable count of an English word by counting
// vowel groups, ignoring a trailing silent "e".
func Syllables(word string) int {
	w := strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if w == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func words(style string, desc Description) ([]string, error) {
	var caption []string
	for _, c := range desc.Captions {
		caption = append(caption, strings.Fields(c)...)
	}

	switch style {
	case StyleCaption:
		return caption, nil
	case StyleTags:
		return desc.Tags, nil
	case StyleFusion:
		seen := make(map[string]bool, len(caption))
		for _, w := range caption {
			seen[strings.ToLower(w)] = true
		}
		out := append([]string(nil), caption...)
		for _, t := range desc.Tags {
			if !seen[strings.ToLower(t)] {
				seen[strings.ToLower(t)] = true
				out = append(out, t)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown style %q", style)
	}
}

/*
Compose arranges the description into three lines aiming at 5/7/5 syllables.
Words are taken in order; a word that would overflow a line moves to the next
one, and words left after the third line are dropped.

Returns:
- []string: Three lines, the last ones possibly empty for short descriptions.
- error: ErrNoDescription when there are no words, or an unknown style.
*/
func Compose(desc Description, style string) ([]string, error) {
	ws, err := words(style, desc)
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, ErrNoDescription
	}

	lines := make([]string, 0, len(lineSyllables))
	next := 0
	for _, target := range lineSyllables {
		var line []string
		count := 0
		for next < len(ws) {
			s := Syllables(ws[next])
			if count > 0 && count+s > target {
				break
			}
			line = append(line, ws[next])
			count += s
			next++
			if count >= target {
				break
			}
		}
		lines = append(lines, strings.Join(line, " "))
	}
	return lines, nil
}
