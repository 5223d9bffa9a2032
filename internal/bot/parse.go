package bot

import (
	"fmt"
	"strconv"
	"strings"

	"blive_bot/internal/subs"
)

// ParseRoomID extracts a numeric room id from a command argument string.
func ParseRoomID(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("room ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room ID %q", s)
	}
	return id, nil
}

// ParsePage extracts an optional page number, defaulting to 1. Invalid
// input falls back to 1; range clamping happens in the listing itself.
func ParsePage(args string) int {
	s := strings.TrimSpace(args)
	if s == "" {
		return 1
	}
	page, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil {
		return 1
	}
	return page
}

// SearchQuery is the parsed form of a /search invocation.
type SearchQuery struct {
	Mode    subs.SearchMode
	ID      int64
	Keyword string
}

// ParseSearchArgs parses /search arguments.
// Format: [-r|-u|-n] <keyword>; room-id search is the default.
func ParseSearchArgs(args string) (SearchQuery, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return SearchQuery{}, fmt.Errorf("usage: /search [-r|-u|-n] <keyword>")
	}

	mode := subs.SearchByRoom
	switch parts[0] {
	case "-r":
		parts = parts[1:]
	case "-u":
		mode = subs.SearchByUID
		parts = parts[1:]
	case "-n":
		mode = subs.SearchByName
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return SearchQuery{}, fmt.Errorf("usage: /search [-r|-u|-n] <keyword>")
	}

	if mode == subs.SearchByName {
		return SearchQuery{Mode: mode, Keyword: strings.Join(parts, " ")}, nil
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return SearchQuery{}, fmt.Errorf("invalid ID %q, use -n to search by name", parts[0])
	}
	return SearchQuery{Mode: mode, ID: id}, nil
}
