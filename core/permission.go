package assistant

import (
	"context"
	"fmt"
	"regexp"

	"github.com/koscakluka/ziggy/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PermissionState int

const (
	PermissionUnclear PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionState) String() string {
	switch p {
	case PermissionUnclear:
		return "unclear"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return fmt.Sprintf("permission(%d)", int(p))
	}
}

// Allows is true only for an explicit grant.
func (p PermissionState) Allows() bool { return p == PermissionGranted }

var (
	affirmativePattern = regexp.MustCompile(`\b(yes|yeah|yep|okay|ok|sure|go ahead|please)\b`)
	negativePattern    = regexp.MustCompile(`\b(no|nope|don't|stop|cancel|nevermind|never mind)\b`)
)

// ClassifyConsent maps a spoken answer to a permission state. A negative
// word anywhere in the answer denies, even next to an affirmative one.
func ClassifyConsent(text string) PermissionState {
	text = speechtotext.NormalizeUtterance(text)
	switch {
	case text == "":
		return PermissionUnclear
	case negativePattern.MatchString(text):
		return PermissionDenied
	case affirmativePattern.MatchString(text):
		return PermissionGranted
	default:
		return PermissionUnclear
	}
}

// RequestPermission asks the user out loud whether a network action may
// proceed and classifies the recorded answer. Every call asks again.
func (a *Assistant) RequestPermission(ctx context.Context, reason string) (PermissionState, error) {
	ctx, span := tracer.Start(ctx, "request permission")
	defer span.End()
	span.SetAttributes(attribute.String("permission.reason", reason))

	if err := a.say(ctx, permissionQuestion(reason)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to ask for permission")
		return PermissionUnclear, err
	}

	answer, err := a.record(ctx, a.config.PermissionWindow)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record permission answer")
		return PermissionUnclear, err
	}

	permission := ClassifyConsent(answer)
	span.SetAttributes(attribute.String("permission.state", permission.String()))
	logger.Info("permission resolved", "reason", reason, "answer", answer, "permission", permission.String())
	return permission, nil
}
