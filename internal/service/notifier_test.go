package service

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/table-booking/internal/logging"
	"github.com/iliyamo/table-booking/internal/model"
)

func sampleJob(kind model.NotificationKind, email string) model.NotificationJob {
	return model.NotificationJob{
		ID:   "job-1",
		Kind: kind,
		Reservation: model.Reservation{
			ID:              "r-1",
			CustomerName:    "Ada",
			PhoneNumber:     "0692000000",
			Email:           email,
			NumberOfPeople:  4,
			Date:            time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC),
			Time:            "19:30",
			SpecialRequests: "high chair",
		},
	}
}

func TestDispatcher_Created(t *testing.T) {
	sms, mail := &fakeSender{}, &fakeSender{}
	d := NewDispatcher(sms, mail, DispatcherConfig{
		StaffPhones: []string{"0601", " ", "0602"},
		StaffEmail:  "staff@example.com",
	}, logging.Discard())

	if err := d.Dispatch(context.Background(), sampleJob(model.NotificationCreated, "ada@example.com")); err != nil {
		t.Fatal(err)
	}
	if got := sms.addresses(); len(got) != 2 || !got["0601"] || !got["0602"] {
		t.Errorf("sms recipients: %v", got)
	}
	if got := mail.addresses(); len(got) != 2 || !got["staff@example.com"] || !got["ada@example.com"] {
		t.Errorf("mail recipients: %v", got)
	}
	subjects := map[string]bool{}
	for _, m := range mail.msgs {
		subjects[m.Subject] = true
	}
	if !subjects["New reservation - Ada (4 pers.)"] || !subjects["Your reservation is confirmed"] {
		t.Errorf("subjects: %v", subjects)
	}
}

func TestDispatcher_CreatedWithoutCustomerEmail(t *testing.T) {
	sms, mail := &fakeSender{}, &fakeSender{}
	d := NewDispatcher(sms, mail, DispatcherConfig{StaffPhones: []string{"0601"}}, logging.Discard())

	if err := d.Dispatch(context.Background(), sampleJob(model.NotificationCreated, "")); err != nil {
		t.Fatal(err)
	}
	if len(sms.sent) != 1 || len(mail.sent) != 0 {
		t.Fatalf("sms %d mail %d", len(sms.sent), len(mail.sent))
	}
}

func TestDispatcher_FailuresDoNotStopOthers(t *testing.T) {
	sms := &fakeSender{fails: map[string]error{"0601": errBoom}}
	mail := &fakeSender{fails: map[string]error{"staff@example.com": errBoom}}
	d := NewDispatcher(sms, mail, DispatcherConfig{
		StaffPhones: []string{"0601", "0602"},
		StaffEmail:  "staff@example.com",
	}, logging.Discard())

	err := d.Dispatch(context.Background(), sampleJob(model.NotificationCreated, "ada@example.com"))
	if !errors.Is(err, ErrNotification) || !errors.Is(err, errBoom) {
		t.Fatalf("expected joined notification errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "0601") || !strings.Contains(err.Error(), "staff@example.com") {
		t.Errorf("both failures must be reported: %v", err)
	}
	if !sms.addresses()["0602"] || !mail.addresses()["ada@example.com"] {
		t.Fatal("healthy recipients must still be served")
	}
}

func TestDispatcher_Reminder(t *testing.T) {
	sms, mail := &fakeSender{}, &fakeSender{}
	d := NewDispatcher(sms, mail, DispatcherConfig{StaffPhones: []string{"0601"}}, logging.Discard())

	if err := d.Dispatch(context.Background(), sampleJob(model.NotificationReminder, "ada@example.com")); err != nil {
		t.Fatal(err)
	}
	if got := sms.addresses(); len(got) != 1 || !got["0692000000"] {
		t.Errorf("reminder goes to the customer phone only: %v", got)
	}
	if len(mail.msgs) != 1 || mail.msgs[0].Subject != "Reservation reminder" {
		t.Fatalf("mail: %+v", mail.msgs)
	}
	if !strings.Contains(mail.msgs[0].Body, "08/01/2030 at 19:30") {
		t.Errorf("body: %q", mail.msgs[0].Body)
	}
}

func TestDispatcher_NoMailSender(t *testing.T) {
	sms := &fakeSender{}
	d := NewDispatcher(sms, nil, DispatcherConfig{StaffPhones: []string{"0601"}, StaffEmail: "staff@example.com"}, nil)
	if err := d.Dispatch(context.Background(), sampleJob(model.NotificationCreated, "ada@example.com")); err != nil {
		t.Fatal(err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("sms sent: %d", len(sms.sent))
	}
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, nil, DispatcherConfig{}, logging.Discard())
	if err := d.Dispatch(context.Background(), sampleJob("fax", "")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSummary(t *testing.T) {
	job := sampleJob(model.NotificationCreated, "")
	got := Summary(&job.Reservation)
	want := "New reservation:\nName: Ada\nPhone: 0692000000\nPeople: 4\nDate: Tuesday 08/01/2030\nTime: 19:30\nNotes: high chair"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "x"})

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), Recipient{Name: "Ada", Address: "ada@example.com"},
		Message{Subject: "Hello", Body: "line one\nline two"})
	if err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "bot@example.com" {
		t.Errorf("addr %q from %q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ada@example.com" {
		t.Errorf("to: %v", gotTo)
	}
	for _, want := range []string{"To: \"Ada\" <ada@example.com>\r\n", "Subject: Hello\r\n", "\r\n\r\nline one\r\nline two"} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("mail does not contain %q:\n%s", want, gotMsg)
		}
	}

	if err := s.Send(context.Background(), Recipient{}, Message{}); err == nil {
		t.Error("empty recipient must fail")
	}
}

func TestSMTPSender_ContextDeadline(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Username: "bot"})
	block := make(chan struct{})
	defer close(block)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Send(ctx, Recipient{Address: "a@b.c"}, Message{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}
