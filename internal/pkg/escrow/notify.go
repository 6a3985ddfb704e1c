package escrow

import (
	"fmt"

	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/notification"
)

// notify tells the other side of d about the status it just reached.
//
//nolint:cyclop,funlen
func (t *txn) notify(d *dare.Dare, now int64) error {
	name := fmt.Sprintf("%s/%d", d.Challenger, d.DareID)

	send := func(user identity.Key, typ notification.Type, title, body string) error {
		if user.IsZero() {
			return nil
		}

		//nolint:wrapcheck
		return t.inbox.Add(&notification.Notification{
			User:       user,
			Challenger: d.Challenger,
			DareID:     d.DareID,
			Type:       typ,
			Title:      title,
			Body:       body,
			CreatedAt:  now,
		})
	}

	switch d.Status {
	case dare.StatusCreated:
		return nil
	case dare.StatusActive:
		return send(d.Challenger, notification.TypeDareAccepted, "Dare accepted",
			fmt.Sprintf("Someone accepted your dare %s. The clock is ticking!", name))
	case dare.StatusProofSubmitted:
		return send(d.Challenger, notification.TypeProofSubmitted, "Proof submitted",
			fmt.Sprintf("Proof has been submitted for %s. Review it now!", name))
	case dare.StatusCompleted:
		return send(d.Daree, notification.TypeDareApproved, "Dare completed",
			fmt.Sprintf("Your proof for %s was approved! %d earned.", name, d.Amount))
	case dare.StatusRejected:
		return send(d.Daree, notification.TypeDareRejected, "Proof rejected",
			fmt.Sprintf("Your proof for %s was rejected. You can resubmit.", name))
	case dare.StatusRefused:
		return send(d.Challenger, notification.TypeDareRefused, "Dare refused",
			fmt.Sprintf("Your dare %s was refused. Your stake has been refunded.", name))
	case dare.StatusCancelled:
		if !d.HasDaree {
			return nil
		}

		return send(d.Daree, notification.TypeDareCancelled, "Dare cancelled",
			fmt.Sprintf("The dare %s has been cancelled.", name))
	case dare.StatusExpired:
		err := send(d.Challenger, notification.TypeDareExpired, "Dare expired",
			fmt.Sprintf("Your dare %s has expired.", name))
		if err != nil {
			return err
		}

		if !d.HasDaree {
			return nil
		}

		return send(d.Daree, notification.TypeDareExpired, "Dare expired",
			fmt.Sprintf("The dare %s has expired.", name))
	}

	return nil
}
