// Package router decides how an utterance is answered. It never performs
// I/O: the only outside input is the clock.
package router

import (
	"regexp"
	"strings"
	"time"
)

const (
	DefaultShutdownPhrase = "take a break"
	Farewell              = "Okay, bye!"
)

var (
	timeQuery = keywords("time", "clock")
	dateQuery = keywords("date", "today", "what day")
	// conversionQuery only decides whether the converter is consulted.
	conversionQuery = keywords("convert", "celsius", "fahrenheit", "meters", "feet", "pounds", "kilograms")
	lookUpQuery     = keywords("look up")
)

// keywords matches any of the words or phrases on word boundaries.
func keywords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, word := range words {
		quoted[i] = regexp.QuoteMeta(word)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

type Router struct {
	shutdownPhrase string
	now            func() time.Time
}

type Option func(*Router)

func WithShutdownPhrase(phrase string) Option {
	return func(r *Router) {
		if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" {
			r.shutdownPhrase = phrase
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

func New(opts ...Option) *Router {
	r := &Router{
		shutdownPhrase: DefaultShutdownPhrase,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) ShutdownPhrase() string { return r.shutdownPhrase }

// IsShutdown reports whether the text contains the shutdown phrase anywhere.
func (r *Router) IsShutdown(text string) bool {
	return strings.Contains(strings.ToLower(text), r.shutdownPhrase)
}

// Route classifies an utterance. Categories are checked in a fixed order and
// the first match wins: shutdown, time, date, conversion, search. Anything
// else, including empty or conversational text, becomes a query for the AI.
func (r *Router) Route(utterance string) Decision {
	text := strings.ToLower(strings.TrimSpace(utterance))

	switch {
	case r.IsShutdown(text):
		return Shutdown(Farewell)
	case timeQuery.MatchString(text):
		return LocalAnswer(TimeAnswer(r.now()))
	case dateQuery.MatchString(text):
		return LocalAnswer(DateAnswer(r.now()))
	}

	if conversionQuery.MatchString(text) {
		if answer, ok := Convert(text); ok {
			return LocalAnswer(answer)
		}
	}

	if strings.HasPrefix(text, "search") || lookUpQuery.MatchString(text) {
		return RemoteQuery(SearchQuery(text), TargetWebSearch)
	}

	return RemoteQuery(text, TargetAI)
}

func TimeAnswer(now time.Time) string {
	return "The time is " + now.Format("03:04 PM")
}

func DateAnswer(now time.Time) string {
	return "Today is " + now.Format("Monday, January 02, 2006")
}

// SearchQuery strips the search verbs from a search request.
func SearchQuery(text string) string {
	query := strings.ReplaceAll(text, "search", "")
	query = strings.ReplaceAll(query, "look up", "")
	return strings.Join(strings.Fields(query), " ")
}
