package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/resumekit/resume-auth/internal/logging"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestOTPMessage(t *testing.T) {
	msg := OTPMessage("a@x.com", "123456", 3*time.Minute)
	if msg.Kind != KindOTPVerification || msg.Destination != "a@x.com" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if !strings.Contains(msg.Body, "123456") || !strings.Contains(msg.Body, "3 minutes") {
		t.Fatalf("body missing code or validity: %s", msg.Body)
	}
}

func TestSMTPNotifierSend(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{from: "info@resumekit.dev", sender: fake}

	if err := n.Send(context.Background(), OTPMessage("a@x.com", "654321", 3*time.Minute)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(fake.sent))
	}
	m := fake.sent[0]
	if to := m.GetHeader("To"); len(to) != 1 || to[0] != "a@x.com" {
		t.Fatalf("unexpected recipient: %v", to)
	}
	if subj := m.GetHeader("Subject"); len(subj) != 1 || subj[0] != otpSubject {
		t.Fatalf("unexpected subject: %v", subj)
	}
}

func TestSMTPNotifierPropagatesFailure(t *testing.T) {
	n := &SMTPNotifier{from: "info@resumekit.dev", sender: &fakeSender{err: errors.New("connection refused")}}
	if err := n.Send(context.Background(), OTPMessage("a@x.com", "654321", 3*time.Minute)); err == nil {
		t.Fatalf("expected send failure")
	}
}

func TestSMTPNotifierHonoursCancellation(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{from: "info@resumekit.dev", sender: fake}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, OTPMessage("a@x.com", "654321", 3*time.Minute)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(fake.sent) != 0 {
		t.Fatalf("nothing should be sent after cancellation")
	}
}

func TestNewSMTPNotifierRequiresSettings(t *testing.T) {
	if _, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com"}); err == nil {
		t.Fatalf("expected error for incomplete config")
	}
	if _, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "info@resumekit.dev"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoggerNotifier(t *testing.T) {
	n := NewLoggerNotifier(logging.Discard())
	if err := n.Send(context.Background(), OTPMessage("a@x.com", "1", time.Minute)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := n.Send(context.Background(), Message{Kind: KindOTPVerification}); !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
	var nilNotifier *LoggerNotifier
	if err := nilNotifier.Send(context.Background(), Message{Destination: "a@x.com"}); err != nil {
		t.Fatalf("nil notifier should be a no-op: %v", err)
	}
}

func TestSMTPNotifierRequiresDestination(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{from: "info@resumekit.dev", sender: fake}
	if err := n.Send(context.Background(), Message{Subject: "hi"}); !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
	if len(fake.sent) != 0 {
		t.Fatalf("nothing should be sent without a recipient")
	}
}
