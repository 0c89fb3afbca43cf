package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, _ Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func validMessage() Message {
	return Message{ToEmail: "brand@example.com", ToName: "Brand Owner", Subject: "Invoice", HTML: "<p>hi</p>"}
}

func TestSESSenderBuildsRequest(t *testing.T) {
	fake := &fakeSES{}
	sender := &SESSender{client: fake, fromEmail: "shop@example.com", replyTo: "owner@example.com"}

	id, err := Deliver(context.Background(), sender, validMessage(), time.Second)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if id != "ses-123" {
		t.Fatalf("expected provider id, got %q", id)
	}
	if aws.ToString(fake.input.FromEmailAddress) != "shop@example.com" {
		t.Fatalf("unexpected from address")
	}
	if got := fake.input.Destination.ToAddresses[0]; got != `"Brand Owner" <brand@example.com>` {
		t.Fatalf("unexpected recipient %q", got)
	}
	if len(fake.input.ReplyToAddresses) != 1 {
		t.Fatalf("expected reply-to address")
	}
}

func TestDeliverWrapsProviderFailure(t *testing.T) {
	sender := &SESSender{client: &fakeSES{err: errors.New("throttled")}, fromEmail: "shop@example.com"}
	if _, err := Deliver(context.Background(), sender, validMessage(), time.Second); !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
}

func TestDeliverTimesOut(t *testing.T) {
	_, err := Deliver(context.Background(), blockingSender{}, validMessage(), 20*time.Millisecond)
	if !errors.Is(err, ErrDelivery) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected delivery timeout, got %v", err)
	}
}

func TestDeliverRejectsBadMessage(t *testing.T) {
	msg := validMessage()
	msg.ToEmail = "not-an-address"
	if _, err := Deliver(context.Background(), NewLogSender(nil), msg, time.Second); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestLogSenderReturnsID(t *testing.T) {
	id, err := NewLogSender(nil).Send(context.Background(), validMessage())
	if err != nil || id == "" {
		t.Fatalf("expected id, got %q err=%v", id, err)
	}
}
