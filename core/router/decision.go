package router

import "fmt"

type Kind int

const (
	KindRemoteQuery Kind = iota
	KindLocalAnswer
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindRemoteQuery:
		return "remote_query"
	case KindLocalAnswer:
		return "local_answer"
	case KindShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target says which network action a remote query needs.
type Target int

const (
	TargetAI Target = iota
	TargetWebSearch
)

func (t Target) String() string {
	switch t {
	case TargetAI:
		return "ai"
	case TargetWebSearch:
		return "web_search"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// Decision is the outcome of routing one utterance.
//
// For a local answer Text is what to say, for a shutdown it is the farewell
// and for a remote query it is the query itself.
type Decision struct {
	Kind   Kind
	Text   string
	Target Target
}

func Shutdown(farewell string) Decision {
	return Decision{Kind: KindShutdown, Text: farewell}
}

func LocalAnswer(text string) Decision {
	return Decision{Kind: KindLocalAnswer, Text: text}
}

func RemoteQuery(query string, target Target) Decision {
	return Decision{Kind: KindRemoteQuery, Text: query, Target: target}
}

func (d Decision) String() string {
	if d.Kind == KindRemoteQuery {
		return fmt.Sprintf("%s(%s): %q", d.Kind, d.Target, d.Text)
	}
	return fmt.Sprintf("%s: %q", d.Kind, d.Text)
}
