// Package notifier delivers committed status transitions to live observers:
// the applicant dashboard, the admin review list and the activity feed. It is
// a fan-out path only — readers needing strong consistency go to the record
// store, not to this stream.
package notifier

import "time"

// TransitionEvent is one committed status change. Fields are plain strings so
// subscribers and mirrors need no knowledge of the engine's domain types.
type TransitionEvent struct {
	ApplicationID string    `json:"application_id"`
	Owner         string    `json:"owner"`
	Kind          string    `json:"kind"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status"`
	Actor         string    `json:"actor"`
	Notes         string    `json:"notes,omitempty"`
	At            time.Time `json:"at"`
}

// Topic partitions the event stream.
type Topic string

// TopicAll receives every transition (admin-wide feed).
const TopicAll Topic = "all"

// TopicOwner scopes the stream to applications owned by one principal.
func TopicOwner(owner string) Topic {
	return Topic("owner:" + owner)
}

// Publisher accepts committed events. Publish never blocks on slow consumers
// and never reports delivery failures to the caller.
type Publisher interface {
	Publish(event TransitionEvent)
}

// Broker is a Publisher observers can subscribe to. Subscribe returns a live,
// non-restartable event channel and a cancel func; cancel is the only way to
// end the subscription. Events for a single application arrive in commit
// order on any one subscription.
type Broker interface {
	Publisher
	Subscribe(topic Topic) (<-chan TransitionEvent, func())
}

// multi fans Publish out to several sinks in order.
type multi []Publisher

// MultiPublisher combines sinks (typically the in-process broker plus the
// Kafka mirror) into one Publisher. Nil sinks are skipped.
func MultiPublisher(sinks ...Publisher) Publisher {
	var ps multi
	for _, s := range sinks {
		if s != nil {
			ps = append(ps, s)
		}
	}
	return ps
}

func (m multi) Publish(event TransitionEvent) {
	for _, p := range m {
		p.Publish(event)
	}
}
