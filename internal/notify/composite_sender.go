package notify

import (
	"context"
	"fmt"
	"strings"
)

// CompositeSender delegates sending to multiple Senders.
type CompositeSender struct {
	senders []Sender
}

// NewCompositeSender creates a new CompositeSender.
func NewCompositeSender(senders ...Sender) *CompositeSender {
	return &CompositeSender{senders: senders}
}

// AddSender adds a sender to the composite sender's list.
func (cs *CompositeSender) AddSender(sender Sender) {
	if sender != nil {
		cs.senders = append(cs.senders, sender)
	}
}

// Send calls every registered sender and collects their errors.
func (cs *CompositeSender) Send(ctx context.Context, msg Message) error {
	if len(cs.senders) == 0 {
		return fmt.Errorf("no senders configured in CompositeSender")
	}

	var allErrors []string
	for _, sender := range cs.senders {
		if err := sender.Send(ctx, msg); err != nil {
			allErrors = append(allErrors, err.Error())
		}
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("composite notification send failed: [ %s ]", strings.Join(allErrors, "; "))
	}
	return nil
}
