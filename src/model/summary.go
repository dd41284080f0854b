package model

import (
	"strings"
	"unicode"
)

const summaryMaxChars = 120

// ExtractSummary derives a short session summary from the first user
// message: the first meaningful sentence, skipping markdown headers,
// truncated to 120 characters.
func (s *Session) ExtractSummary() string {
	first := s.FirstUserMessage()
	if first == "" {
		return ""
	}
	for _, line := range strings.Split(first, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return truncateRunes(firstSentence(trimmed), summaryMaxChars)
	}
	return ""
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+len(string(r))]
		}
	}
	return text
}

var workKeywords = []string{
	"완료", "구현", "추가", "수정", "생성", "삭제", "변경",
	"complete", "implement", "added", "modified", "created", "fixed",
	"updated", "refactored", "removed", "resolved",
}

var summaryHeaders = []string{
	"## summary", "## 요약", "## result", "## 결과", "## done", "## 완료",
}

// ExtractWorkSummary derives a one-line description of what the session
// accomplished from the last assistant message. Three stages: a line under a
// summary-style header, then the line scoring highest on completion
// keywords, then the first meaningful line. Code blocks, tables and comments
// are ignored throughout.
func (s *Session) ExtractWorkSummary() string {
	last := s.LastAssistantMessage()
	if last == "" {
		return ""
	}

	var meaningful []string
	inCode := false
	for _, line := range strings.Split(last, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode || trimmed == "" || strings.HasPrefix(trimmed, "|") || strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		meaningful = append(meaningful, line)
	}

	// Stage 1: line following a summary header.
	for i, line := range meaningful {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, h := range summaryHeaders {
			if !strings.HasPrefix(lower, h) {
				continue
			}
			for _, next := range meaningful[i+1:] {
				cleaned := stripMarkdown(strings.TrimSpace(next))
				if len(cleaned) > 3 {
					return truncateRunes(cleaned, summaryMaxChars)
				}
			}
		}
	}

	// Stage 2: keyword scoring.
	bestScore := 0
	best := ""
	for _, line := range meaningful {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= 5 || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lower := strings.ToLower(line)
		score := 0
		for _, kw := range workKeywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = trimmed
		}
	}
	if best != "" {
		return truncateRunes(stripMarkdown(best), summaryMaxChars)
	}

	// Stage 3: first meaningful line.
	for _, line := range meaningful {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 5 && !strings.HasPrefix(trimmed, "#") {
			return truncateRunes(stripMarkdown(trimmed), summaryMaxChars)
		}
	}
	return ""
}

// stripMarkdown removes bold/italic markers and leading list markers.
func stripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	trimmed := strings.TrimLeft(s, " \t")
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return strings.TrimSpace(trimmed[2:])
	}
	// Numbered list: "1. item"
	i := 0
	for i < len(trimmed) && unicode.IsDigit(rune(trimmed[i])) {
		i++
	}
	if i > 0 && strings.HasPrefix(trimmed[i:], ". ") {
		return strings.TrimSpace(trimmed[i+2:])
	}
	return strings.TrimSpace(trimmed)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
