// Package prune shortens oversized text to a head and tail excerpt.
package prune

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const DefaultMarker = "[...]"

// Config bounds the output. Head and tail budgets are taken from the input
// before the marker is inserted between them.
type Config struct {
	MaxBytes  int
	MaxLines  int
	HeadBytes int
	HeadLines int
	TailBytes int
	TailLines int
	Marker    string
}

// ErrorBody suits provider error pages: short enough for a log line or an
// error message shown to users.
var ErrorBody = Config{
	MaxBytes:  512,
	MaxLines:  8,
	HeadBytes: 384,
	HeadLines: 6,
	TailBytes: 96,
	TailLines: 1,
}

func Exceeds(s string, maxBytes, maxLines int) bool {
	return len(s) > maxBytes || CountLines(s) > maxLines
}

func CountLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// Text returns s unchanged when it fits cfg, otherwise its head, the marker
// and its tail. Cuts never split a UTF-8 sequence.
func Text(s string, cfg Config) string {
	cfg = normalize(cfg)
	if !Exceeds(s, cfg.MaxBytes, cfg.MaxLines) {
		return s
	}
	head := prefix(s, cfg.HeadBytes, cfg.HeadLines)
	tail := suffix(s, cfg.TailBytes, cfg.TailLines)
	var out string
	if tail == "" {
		out = fmt.Sprintf("%s %s (%d bytes)", head, cfg.Marker, len(s))
	} else {
		out = fmt.Sprintf("%s %s %s", head, cfg.Marker, tail)
	}
	if Exceeds(out, cfg.MaxBytes, cfg.MaxLines) {
		return prefix(out, cfg.MaxBytes, cfg.MaxLines)
	}
	return out
}

func normalize(cfg Config) Config {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = ErrorBody.MaxBytes
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = ErrorBody.MaxLines
	}
	if cfg.HeadBytes <= 0 || cfg.HeadBytes > cfg.MaxBytes {
		cfg.HeadBytes = cfg.MaxBytes / 2
	}
	if cfg.HeadLines <= 0 || cfg.HeadLines > cfg.MaxLines {
		cfg.HeadLines = cfg.MaxLines
	}
	if cfg.TailBytes < 0 {
		cfg.TailBytes = 0
	}
	if cfg.TailLines < 0 {
		cfg.TailLines = 0
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	return cfg
}

func prefix(s string, maxBytes, maxLines int) string {
	if s == "" || maxBytes <= 0 || maxLines <= 0 {
		return ""
	}
	if maxBytes < len(s) {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	lines := strings.SplitN(s, "\n", maxLines+1)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

func suffix(s string, maxBytes, maxLines int) string {
	if s == "" || maxBytes <= 0 || maxLines <= 0 {
		return ""
	}
	if maxBytes < len(s) {
		start := len(s) - maxBytes
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
		s = s[start:]
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
