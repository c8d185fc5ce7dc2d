package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/iliyamo/table-booking/internal/model"
)

// DispatcherConfig lists the fixed staff recipients.
type DispatcherConfig struct {
	StaffPhones []string
	StaffEmail  string
}

// Dispatcher turns notification jobs into SMS and mail.  Every send runs in
// its own goroutine; one failure never stops the others and nothing is
// retried.
type Dispatcher struct {
	sms  Sender
	mail Sender
	cfg  DispatcherConfig
	log  *slog.Logger
}

// NewDispatcher returns a dispatcher.  A nil mail sender disables email; a
// nil sms sender disables SMS.
func NewDispatcher(sms, mail Sender, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	phones := make([]string, 0, len(cfg.StaffPhones))
	for _, p := range cfg.StaffPhones {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	cfg.StaffPhones = phones
	return &Dispatcher{sms: sms, mail: mail, cfg: cfg, log: log}
}

type delivery struct {
	channel string
	sender  Sender
	to      Recipient
	msg     Message
}

// Dispatch sends every message job calls for and waits for all of them.
// The returned error joins the individual failures; callers log it.
func (d *Dispatcher) Dispatch(ctx context.Context, job model.NotificationJob) error {
	var deliveries []delivery
	switch job.Kind {
	case model.NotificationCreated:
		deliveries = d.created(&job.Reservation)
	case model.NotificationReminder:
		deliveries = d.reminder(&job.Reservation)
	default:
		return fmt.Errorf("unknown notification kind %q", job.Kind)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, dl := range deliveries {
		wg.Add(1)
		go func(dl delivery) {
			defer wg.Done()
			if err := dl.sender.Send(ctx, dl.to, dl.msg); err != nil {
				nerr := &NotificationError{Channel: dl.channel, Recipient: dl.to.Address, Err: err}
				d.log.Error("notification failed",
					slog.String("reservation_id", job.Reservation.ID),
					slog.String("channel", dl.channel),
					slog.String("to", dl.to.Address),
					slog.Any("err", err))
				mu.Lock()
				errs = append(errs, nerr)
				mu.Unlock()
			}
		}(dl)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) created(r *model.Reservation) []delivery {
	summary := Summary(r)
	var out []delivery
	if d.sms != nil {
		for _, phone := range d.cfg.StaffPhones {
			out = append(out, delivery{
				channel: "sms", sender: d.sms,
				to:  Recipient{Address: phone},
				msg: Message{Body: summary},
			})
		}
	}
	if d.mail == nil {
		return out
	}
	if d.cfg.StaffEmail != "" {
		out = append(out, delivery{
			channel: "email", sender: d.mail,
			to: Recipient{Address: d.cfg.StaffEmail},
			msg: Message{
				Subject: fmt.Sprintf("New reservation - %s (%d pers.)", r.CustomerName, r.NumberOfPeople),
				Body:    summary,
			},
		})
	}
	if r.Email != "" {
		out = append(out, delivery{
			channel: "email", sender: d.mail,
			to: Recipient{Name: r.CustomerName, Address: r.Email},
			msg: Message{
				Subject: "Your reservation is confirmed",
				Body: fmt.Sprintf("Hello %s,\n\nYour reservation is confirmed:\n%s\n\nSee you soon!\n\nThe restaurant team",
					r.CustomerName, summary),
			},
		})
	}
	return out
}

func (d *Dispatcher) reminder(r *model.Reservation) []delivery {
	body := fmt.Sprintf("Reminder: your reservation for %d on %s at %s is confirmed. See you soon!",
		r.NumberOfPeople, r.Date.Format("02/01/2006"), r.Time)
	var out []delivery
	if d.sms != nil && r.PhoneNumber != "" {
		out = append(out, delivery{
			channel: "sms", sender: d.sms,
			to:  Recipient{Name: r.CustomerName, Address: r.PhoneNumber},
			msg: Message{Body: body},
		})
	}
	if d.mail != nil && r.Email != "" {
		out = append(out, delivery{
			channel: "email", sender: d.mail,
			to:  Recipient{Name: r.CustomerName, Address: r.Email},
			msg: Message{Subject: "Reservation reminder", Body: body},
		})
	}
	return out
}

// Summary renders the staff-facing description of a reservation.
func Summary(r *model.Reservation) string {
	var b strings.Builder
	b.WriteString("New reservation:\n")
	fmt.Fprintf(&b, "Name: %s\n", r.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", r.PhoneNumber)
	fmt.Fprintf(&b, "People: %d\n", r.NumberOfPeople)
	fmt.Fprintf(&b, "Date: %s\n", r.Date.Format("Monday 02/01/2006"))
	fmt.Fprintf(&b, "Time: %s", r.Time)
	if r.SpecialRequests != "" {
		fmt.Fprintf(&b, "\nNotes: %s", r.SpecialRequests)
	}
	return b.String()
}
