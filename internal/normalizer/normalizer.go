// Package normalizer turns Meta webhook bodies into a flat, ordered list of
// WebhookEvent values. It performs no I/O.
package normalizer

import (
	"encoding/json"
	"fmt"

	"inboxhook/internal/constants"
	pkgerrors "inboxhook/pkg/errors"
)

// Skip records a sub-event that produced no WebhookEvent.
type Skip struct {
	Entry  int
	Index  int
	Source string
	Reason string
}

type Result struct {
	Events  []WebhookEvent
	Skipped []Skip
}

// Parse decodes the top level of a webhook body.
func Parse(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, pkgerrors.ErrValidation.
			WithMessage("malformed webhook payload").
			WithCause(err)
	}
	return &p, nil
}

// ExpectedObject returns the "object" discriminator for platform.
func ExpectedObject(platform string) (string, bool) {
	switch platform {
	case constants.PlatformFacebook:
		return constants.ObjectPage, true
	case constants.PlatformInstagram:
		return constants.ObjectInstagram, true
	}
	return "", false
}

// ValidateObject rejects a payload whose discriminator does not belong to
// platform.
func ValidateObject(platform string, p *Payload) error {
	want, ok := ExpectedObject(platform)
	if !ok {
		return pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("unknown platform %q", platform))
	}
	if p == nil || p.Object != want {
		got := ""
		if p != nil {
			got = p.Object
		}
		return pkgerrors.ErrValidation.
			WithMessage(fmt.Sprintf("unexpected webhook object %q", got)).
			WithDetail("expected", want)
	}
	return nil
}

// Normalize parses, validates and flattens raw in one step.
func Normalize(platform string, raw []byte) ([]WebhookEvent, error) {
	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateObject(platform, p); err != nil {
		return nil, err
	}
	return NormalizePayload(platform, p).Events, nil
}

func NormalizeFacebook(p *Payload) Result {
	return NormalizePayload(constants.PlatformFacebook, p)
}

func NormalizeInstagram(p *Payload) Result {
	return NormalizePayload(constants.PlatformInstagram, p)
}

// NormalizePayload flattens entries x sub-events in arrival order: entry
// order first, then messaging[] followed by changes[] within each entry.
// The discriminator is not checked here.
func NormalizePayload(platform string, p *Payload) Result {
	var res Result
	if p == nil {
		return res
	}

	for i, rawEntry := range p.Entry {
		var e entry
		if err := json.Unmarshal(rawEntry, &e); err != nil {
			res.Skipped = append(res.Skipped, Skip{Entry: i, Index: -1, Source: "entry", Reason: "malformed entry"})
			continue
		}

		for j, raw := range e.Messaging {
			res.add(platform, classifyMessaging(raw, e.Time), i, j, "messaging")
		}
		for j, raw := range e.Changes {
			res.add(platform, classifyChange(raw, platform, e.Time), i, j, "changes")
		}
	}

	return res
}

func (r *Result) add(platform string, se subEvent, entryIdx, idx int, source string) {
	if ev, ok := se.event(platform); ok {
		r.Events = append(r.Events, ev)
		return
	}

	reason := "unrecognized"
	if s, ok := se.(skipped); ok {
		reason = s.reason
	}
	r.Skipped = append(r.Skipped, Skip{Entry: entryIdx, Index: idx, Source: source, Reason: reason})
}
